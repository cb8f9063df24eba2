package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"wavecli/pkg/contracts/domain"
)

// WaveFiles holds the three per-wave table paths.
type WaveFiles struct {
	Wave     domain.Wave
	Survey   string
	Usage    string
	Location string
}

// Inputs holds every source file of one pipeline run.
type Inputs struct {
	Waves        []WaveFiles
	Mapping      string
	Demographics string
}

// DiscoverInputs locates the study's tabular exports under root. The
// layout is one directory per wave (wave2, wave3, wave4) holding
// survey, usage and location tables, with the identifier mapping and
// demographics tables at the top level. Tables may be .csv or .xlsx.
// A wave directory may be absent; at least one complete wave and both
// top-level tables are required.
func DiscoverInputs(root string) (Inputs, error) {
	var in Inputs

	for _, wave := range domain.Waves() {
		dir := filepath.Join(root, wave.String())
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		wf := WaveFiles{
			Wave:     wave,
			Survey:   findTable(dir, "survey"),
			Usage:    findTable(dir, "usage"),
			Location: findTable(dir, "location"),
		}
		if wf.Survey == "" || wf.Usage == "" || wf.Location == "" {
			return Inputs{}, fmt.Errorf("%s: directory %s is missing one of survey/usage/location tables", wave, dir)
		}
		in.Waves = append(in.Waves, wf)
	}
	if len(in.Waves) == 0 {
		return Inputs{}, fmt.Errorf("no wave directories found under %s", root)
	}

	if in.Mapping = findTable(root, "mapping"); in.Mapping == "" {
		return Inputs{}, fmt.Errorf("no identifier-mapping table found under %s", root)
	}
	if in.Demographics = findTable(root, "demographics"); in.Demographics == "" {
		return Inputs{}, fmt.Errorf("no demographics table found under %s", root)
	}

	return in, nil
}

// findTable returns the path of dir/base with the first supported
// extension that exists, or "" when neither does.
func findTable(dir, base string) string {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
