package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestLoggerRegistry(t *testing.T) {
	manager := newLoggerManager()
	fitLogger := NewBlankLogger("fit")
	smoothLogger := NewBlankLogger("smooth")
	manager.registerLogger("fit", fitLogger)
	manager.registerLogger("smooth", smoothLogger)

	got, ok := manager.loggerNamed("fit")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldEqual, fitLogger)

	got, ok = manager.loggerNamed("filter")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, got, test.ShouldBeNil)

	test.That(t, manager.updateLoggerLevel("smooth", ERROR), test.ShouldBeNil)
	test.That(t, smoothLogger.GetLevel(), test.ShouldEqual, ERROR)
	test.That(t, manager.updateLoggerLevel("filter", ERROR), test.ShouldNotBeNil)

	test.That(t, manager.getRegisteredLoggerNames(), test.ShouldResemble, []string{"fit", "smooth"})

	manager.deregisterLogger("fit")
	_, ok = manager.loggerNamed("fit")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, manager.getRegisteredLoggerNames(), test.ShouldResemble, []string{"smooth"})
}
