package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
	"go.viam.com/utils"
)

type fitSummary struct {
	Status string
	cycle  int
}

// assertLogMatches fuzzy matches a log line. The time and line number are only checked for shape.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[4], test.ShouldEqual, expectedParts[4])
	if len(actualParts) == 5 {
		return
	}

	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[5]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[5]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"pipeline", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Info("cycle started")
	assertLogMatches(t, notStdout,
		"2023-10-30T09:12:09.459Z\tINFO\tpipeline\tlogging/impl_test.go:60\tcycle started")

	logger.Warnf("solver hit %s", "max_cpu_time")
	assertLogMatches(t, notStdout,
		"2023-10-30T09:12:09.459Z\tWARN\tpipeline\tlogging/impl_test.go:64\tsolver hit max_cpu_time")

	logger.Infow("fit", "points", 50, "summary", fitSummary{"converged", 3})
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	pipeline	logging/impl_test.go:68	fit	{"points":50,"summary":{"Status":"converged"}}`)

	logger.Errorw("unpaired", "key")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	ERROR	pipeline	logging/impl_test.go:72	unpaired	{"key":"unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"lvl", NewAtomicLevelAt(WARN), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Info("dropped")
	logger.Debugw("dropped", "k", 1)
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.CDebugw(EnableDebugMode(context.Background(), ""), "forced")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "forced")
	notStdout.Reset()

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("kept")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "kept")

	sub := logger.Sublogger("fit")
	notStdout.Reset()
	sub.Info("from sub")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "lvl.fit")
}

func TestGlobalDebugLevel(t *testing.T) {
	notStdout := &bytes.Buffer{}
	var logger utils.ILogger = &impl{"global", NewAtomicLevelAt(ERROR), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Debug("dropped")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	GlobalLogLevel.SetLevel(zapcore.DebugLevel)
	defer GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	logger.Debug("forced")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "forced")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}
	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"error"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	out, err := json.Marshal(WARN)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"warn"`)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("degraded fit", "elapsed", "5s")
	test.That(t, logs.FilterMessage("degraded fit").Len(), test.ShouldEqual, 1)
}
