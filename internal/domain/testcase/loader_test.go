package testcase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/measure-harness/internal/domain/scoring"
)

const bundleWithReport = `{
  "resourceType": "Bundle",
  "type": "collection",
  "entry": [
    {"resource": {"resourceType": "Patient", "id": "pat-1"}},
    {"resource": {"resourceType": "Encounter", "id": "e1", "subject": {"reference": "Patient/pat-1"}}},
    {"resource": {
      "resourceType": "MeasureReport",
      "id": "expected",
      "modifierExtension": [{"url": "http://hl7.org/fhir/us/cqfmeasures/StructureDefinition/cqfm-isTestCase", "valueBoolean": true}],
      "period": {"start": "2025-01-01", "end": "2025-12-31"},
      "group": [{"id": "Group_1", "population": [
        {"code": {"coding": [{"code": "measure-population"}]}, "count": 1},
        {"code": {"coding": [{"code": "measure-observation"}]}, "count": 1}
      ]}]
    }}
  ]
}`

const bundleWithoutReport = `{
  "resourceType": "Bundle",
  "type": "collection",
  "entry": [{"resource": {"resourceType": "Patient", "id": "pat-2"}}]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b-dir", "bundle.json"), bundleWithoutReport)
	writeFile(t, filepath.Join(dir, "b-dir", "expected.yaml"), "groups:\n  - groupId: Group_2\n")
	writeFile(t, filepath.Join(dir, "a-file.json"), bundleWithReport)
	writeFile(t, filepath.Join(dir, "c-none.json"), bundleWithoutReport)
	writeFile(t, filepath.Join(dir, "c-none.expected.json"), `{"groups": [{"groupId": "Group_3"}]}`)
	writeFile(t, filepath.Join(dir, "empty", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	sources, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "a-file", sources[0].Name)
	assert.Empty(t, sources[0].ExpectedPath)
	assert.Equal(t, "b-dir", sources[1].Name)
	assert.Equal(t, filepath.Join(dir, "b-dir", "expected.yaml"), sources[1].ExpectedPath)
	assert.Equal(t, "c-none", sources[2].Name)
	assert.Equal(t, filepath.Join(dir, "c-none.expected.json"), sources[2].ExpectedPath)

	tc, err := Load(sources[0])
	require.NoError(t, err)
	assert.Equal(t, "pat-1", tc.PatientID)
	require.Len(t, tc.Expected.Groups, 1)
	assert.Equal(t, 1, tc.Expected.Groups[0].Populations.MeasurePopulation)

	tc, err = Load(sources[1])
	require.NoError(t, err)
	assert.Equal(t, "pat-2", tc.PatientID)
	assert.Equal(t, scoring.Group2, tc.Expected.Groups[0].GroupID)
}

func TestDiscover_MultipleBundlesInDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "case", "one.json"), bundleWithoutReport)
	writeFile(t, filepath.Join(dir, "case", "two.json"), bundleWithoutReport)

	_, err := Discover(dir)
	assert.Error(t, err)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoad_NoExpectedResults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.json")
	writeFile(t, path, bundleWithoutReport)

	_, err := Load(Source{Name: "case", BundlePath: path})
	assert.ErrorIs(t, err, ErrNoExpectedResults)
}

func TestLoad_NoPatient(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.json")
	writeFile(t, path, `{"resourceType": "Bundle", "type": "collection"}`)

	_, err := Load(Source{Name: "case", BundlePath: path})
	assert.Error(t, err)
}
