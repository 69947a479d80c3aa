package pipeline

import (
	"context"
	"image/color"
	"path/filepath"

	"github.com/viam-labs/superquadric-model/pointcloud"
)

// dumpPoints writes cloud to <dump_dir>/<prefix>-<tag>.off. Failures are logged and otherwise
// ignored.
func (c *Controller) dumpPoints(ctx context.Context, prefix string, cloud pointcloud.Cloud, fallback color.NRGBA) {
	fn := filepath.Join(c.dumpDir, prefix+"-"+c.tagFile+".off")
	if err := pointcloud.WriteToOFFFile(cloud, fn, fallback); err != nil {
		c.logger.CWarnw(ctx, "cannot save points", "file", fn, "error", err)
		return
	}
	c.logger.CDebugw(ctx, "saved points", "file", fn, "points", len(cloud))
}
