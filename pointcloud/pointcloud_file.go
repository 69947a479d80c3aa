package pointcloud

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// NewFromFile returns a point cloud read in from the given file.
func NewFromFile(fn string) (Cloud, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".off":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadOFF(f)
	case ".las":
		return NewFromLASFile(fn)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the cloud in the format named by the extension of fn, OFF or LAS.
func WriteToFile(cloud Cloud, fn string, fallback color.NRGBA) error {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".off":
		return WriteToOFFFile(cloud, fn, fallback)
	case ".las":
		return WriteToLASFile(cloud, fn)
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}

// NewFromLASFile reads the points of a LAS file. Points in format 2 carry their color.
func NewFromLASFile(fn string) (Cloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	cloud := make(Cloud, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()
		pos := r3.Vector{X: data.X, Y: data.Y, Z: data.Z}
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			rgb := p.RgbData()
			cloud = append(cloud, NewColoredPoint(pos, color.NRGBA{
				R: uint8(rgb.Red / 256),
				G: uint8(rgb.Green / 256),
				B: uint8(rgb.Blue / 256),
				A: 255,
			}))
			continue
		}
		cloud = append(cloud, Point{Position: pos})
	}
	return cloud, nil
}

// WriteToLASFile writes the cloud to a LAS file, in point format 2 when any point is colored.
// Uncolored points of a colored cloud are written white.
func WriteToLASFile(cloud Cloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	hasColor := cloud.MetaData().HasColor
	pointFormatID := 0
	if hasColor {
		pointFormatID = 2
	}
	if err := lf.AddHeader(lidario.LasHeader{PointFormatID: byte(pointFormatID)}); err != nil {
		return err
	}
	for _, p := range cloud {
		pr0 := &lidario.PointRecord0{
			X: p.Position.X,
			Y: p.Position.Y,
			Z: p.Position.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3),
			},
			PointSourceID: 1,
		}
		var lp lidario.LasPointer = pr0
		if hasColor {
			r, g, b := uint8(255), uint8(255), uint8(255)
			if p.HasColor {
				r, g, b = p.RGB255()
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(r) * 256,
					Green: uint16(g) * 256,
					Blue:  uint16(b) * 256,
				},
			}
		}
		if err := lf.AddLasPoint(lp); err != nil {
			return err
		}
	}
	return nil
}

// WriteToOFFFile writes the cloud to fn in COFF format. Uncolored points are written with the
// fallback color.
func WriteToOFFFile(cloud Cloud, fn string, fallback color.NRGBA) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WriteOFF(cloud, f, fallback)
}

// WriteOFF writes the cloud as a vertex-only COFF file: a "COFF" header, a "<n> 0 0" count line,
// a blank line, then one "x y z r g b" row per point.
func WriteOFF(cloud Cloud, out io.Writer, fallback color.NRGBA) error {
	w := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(w, "COFF\n%d 0 0\n\n", len(cloud)); err != nil {
		return err
	}
	for _, p := range cloud {
		c := fallback
		if p.HasColor {
			c = p.Color
		}
		if _, err := fmt.Fprintf(w, "%s %s %s %d %d %d\n",
			formatCoord(p.Position.X), formatCoord(p.Position.Y), formatCoord(p.Position.Z),
			c.R, c.G, c.B); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadOFF reads the vertices of an OFF or COFF stream. Faces, if any, are ignored. Lines starting
// with '#' are comments. Rows with at least six numbers are read as colored points.
func ReadOFF(in io.Reader) (Cloud, error) {
	const (
		stateHeader = iota
		stateCount
		stateVertices
	)
	scanner := bufio.NewScanner(in)
	state := stateHeader
	nPoints := 0
	var cloud Cloud

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch state {
		case stateHeader:
			tag := strings.ToUpper(fields[0])
			if tag != "OFF" && tag != "COFF" {
				return nil, errors.Errorf("not an OFF file, header is %q", fields[0])
			}
			state = stateCount
		case stateCount:
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, errors.Wrap(err, "bad OFF vertex count")
			}
			if n == 0 {
				return Cloud{}, nil
			}
			nPoints = n
			cloud = make(Cloud, 0, n)
			state = stateVertices
		case stateVertices:
			p, err := parseOFFVertex(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "bad OFF vertex %d", len(cloud))
			}
			cloud = append(cloud, p)
			if len(cloud) == nPoints {
				return cloud, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.Errorf("OFF file ended after %d of %d vertices", len(cloud), nPoints)
}

func parseOFFVertex(fields []string) (Point, error) {
	if len(fields) < 3 {
		return Point{}, errors.Errorf("expected at least 3 coordinates, got %d", len(fields))
	}
	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Point{}, err
		}
		xyz[i] = v
	}
	pos := r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if len(fields) < 6 {
		return Point{Position: pos}, nil
	}
	var rgb [3]uint8
	for i := range rgb {
		v, err := strconv.ParseUint(fields[3+i], 10, 8)
		if err != nil {
			return Point{}, err
		}
		rgb[i] = uint8(v)
	}
	return NewColoredPoint(pos, color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}), nil
}
