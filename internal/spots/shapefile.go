package spots

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonas-p/go-shp"
	"github.com/ngmaloney/strike-log/internal/models"
)

// Attribute names read from a spot shapefile. Only NAME is required.
const (
	fieldName   = "NAME"
	fieldDepth  = "DEPTH"
	fieldBottom = "BOTTOM"
)

// ErrNoNameField means the shapefile has no NAME attribute.
var ErrNoNameField = errors.New("shapefile has no NAME attribute")

// ImportShapefile adds every point in an ESRI point shapefile as a spot.
// path may be the .shp itself or a .zip containing one. Points whose name
// is already saved, or that have no name, are skipped.
func (s *Service) ImportShapefile(path string) (int, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "strikelog-shp")
		if err != nil {
			return 0, fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		if err := unzipFile(path, dir); err != nil {
			return 0, fmt.Errorf("extracting shapefile: %w", err)
		}
		shpPath, err := findShapefile(dir)
		if err != nil {
			return 0, err
		}
		path = shpPath
	}

	spots, err := readShapefile(path)
	if err != nil {
		return 0, err
	}

	existing, err := s.repo.List()
	if err != nil {
		return 0, err
	}
	taken := make(map[string]bool, len(existing))
	for _, sp := range existing {
		taken[sp.Name] = true
	}

	added := 0
	for i := range spots {
		sp := &spots[i]
		if taken[sp.Name] {
			s.log.Debug().Str("spot", sp.Name).Msg("skipping existing spot")
			continue
		}
		if err := models.Validate(sp); err != nil {
			s.log.Warn().Err(err).Str("spot", sp.Name).Msg("skipping invalid spot")
			continue
		}
		if err := s.repo.Save(sp); err != nil {
			return added, err
		}
		taken[sp.Name] = true
		added++
	}

	s.log.Info().Int("added", added).Int("read", len(spots)).Str("path", path).Msg("shapefile imported")
	return added, nil
}

// readShapefile converts point records to spots
func readShapefile(path string) ([]models.Spot, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	nameIdx, depthIdx, bottomIdx := -1, -1, -1
	for i, f := range shape.Fields() {
		switch strings.ToUpper(strings.TrimSpace(f.String())) {
		case fieldName:
			nameIdx = i
		case fieldDepth:
			depthIdx = i
		case fieldBottom:
			bottomIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, ErrNoNameField
	}

	var spots []models.Spot
	for shape.Next() {
		n, p := shape.Shape()

		point, ok := p.(*shp.Point)
		if !ok {
			continue
		}

		name := attribute(shape, n, nameIdx)
		if name == "" {
			continue
		}

		spot := models.Spot{
			ID:   uuid.New().String(),
			Name: name,
			Lat:  point.Y,
			Lon:  point.X,
		}
		if depthIdx >= 0 {
			if d, err := strconv.ParseFloat(attribute(shape, n, depthIdx), 64); err == nil {
				spot.DepthM = d
			}
		}
		if bottomIdx >= 0 {
			spot.BottomType = attribute(shape, n, bottomIdx)
		}
		spots = append(spots, spot)
	}
	return spots, nil
}

func attribute(shape *shp.Reader, n, field int) string {
	return strings.TrimSpace(strings.Trim(shape.ReadAttribute(n, field), "\x00"))
}

func findShapefile(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".shp") {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching for shapefile: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no .shp file in archive")
	}
	return found, nil
}

// unzipFile extracts a zip file to a destination directory
func unzipFile(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(dest, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, fpath string) error {
	outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer outFile.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return err
	}
	return outFile.Close()
}
