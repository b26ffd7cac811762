package testcase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehr/measure-harness/internal/platform/fhir"
)

const expectedBase = "expected"

var expectedExts = []string{".json", ".yaml", ".yml"}

// Discover lists the test cases under dir. A test case is either a
// subdirectory holding one bundle (plus an optional expected.{json,yaml})
// or a top-level <name>.json bundle with an optional <name>.expected.{json,yaml}
// next to it. Sources are returned sorted by name.
func Discover(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read test case directory: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			src, ok, err := discoverDir(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			if ok {
				sources = append(sources, src)
			}
			continue
		}
		if filepath.Ext(name) != ".json" {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		if strings.HasSuffix(base, "."+expectedBase) {
			continue
		}
		sources = append(sources, Source{
			Name:         base,
			BundlePath:   filepath.Join(dir, name),
			ExpectedPath: findExpected(dir, base+"."+expectedBase),
		})
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

func discoverDir(dir string) (Source, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Source{}, false, fmt.Errorf("read test case %s: %w", dir, err)
	}
	var bundles []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name == expectedBase+".json" {
			continue
		}
		bundles = append(bundles, name)
	}
	switch len(bundles) {
	case 0:
		return Source{}, false, nil
	case 1:
	default:
		return Source{}, false, fmt.Errorf("test case %s has %d bundle files, expected one", dir, len(bundles))
	}
	return Source{
		Name:         filepath.Base(dir),
		BundlePath:   filepath.Join(dir, bundles[0]),
		ExpectedPath: findExpected(dir, expectedBase),
	}, true, nil
}

func findExpected(dir, base string) string {
	for _, ext := range expectedExts {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads a test case's bundle and expected results. A sidecar file takes
// precedence over the bundle's MeasureReport.
func Load(src Source) (*TestCase, error) {
	data, err := os.ReadFile(src.BundlePath)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := fhir.ParseBundle(data)
	if err != nil {
		return nil, err
	}
	patients := bundle.PatientBundles()
	if len(patients) == 0 {
		return nil, fmt.Errorf("bundle %s has no Patient", src.BundlePath)
	}

	tc := &TestCase{
		Name:       src.Name,
		BundlePath: src.BundlePath,
		PatientID:  patients[0].PatientID,
		Bundle:     bundle,
	}
	tc.Expected, err = loadExpected(src, bundle)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

func loadExpected(src Source, bundle *fhir.Bundle) (ExpectedResults, error) {
	if src.ExpectedPath != "" {
		data, err := os.ReadFile(src.ExpectedPath)
		if err != nil {
			return ExpectedResults{}, fmt.Errorf("read expected results: %w", err)
		}
		return ParseExpected(src.ExpectedPath, data)
	}

	mr, err := bundle.TestCaseReport()
	if errors.Is(err, fhir.ErrNoMeasureReport) {
		return ExpectedResults{}, ErrNoExpectedResults
	}
	if err != nil {
		return ExpectedResults{}, err
	}
	return FromMeasureReport(mr)
}
