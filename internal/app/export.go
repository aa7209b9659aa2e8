package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// ManifestName is the run summary written next to exported stills
const ManifestName = "manifest.json"

// Export writes every capture of st into dir and returns the file paths.
// Files are named capture_<index>_<phase>_<timestamp>.<ext>; a manifest
// with the run state (without image bytes) is written as manifest.json.
func Export(dir string, st strobe.State) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("app: creating output directory: %w", err)
	}

	paths := make([]string, 0, len(st.Captures)+1)
	for i, ref := range st.Captures {
		name := fmt.Sprintf("capture_%02d_%s_%s.%s",
			i, phaseName(ref.Phase), ref.CapturedAt.Format("20060102_150405.000"), extension(ref.MIMEType))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, ref.Data, 0o644); err != nil {
			return paths, fmt.Errorf("app: writing capture %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	manifest, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return paths, fmt.Errorf("app: encoding manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, manifest, 0o644); err != nil {
		return paths, fmt.Errorf("app: writing manifest: %w", err)
	}
	return append(paths, path), nil
}

func phaseName(phase bool) string {
	if phase {
		return "A"
	}
	return "B"
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	default:
		return "bin"
	}
}
