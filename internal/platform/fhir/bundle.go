package fhir

import (
	"encoding/json"
	"fmt"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// ParseBundle decodes a Bundle and rejects anything that is not one.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected resourceType Bundle, got %q", b.ResourceType)
	}
	return &b, nil
}

// Resources returns the raw entries of one resource type in bundle order.
func (b *Bundle) Resources(resourceType string) []json.RawMessage {
	var out []json.RawMessage
	for _, e := range b.Entry {
		if len(e.Resource) == 0 {
			continue
		}
		h, err := resourceHeader(e.Resource)
		if err != nil || h.ResourceType != resourceType {
			continue
		}
		out = append(out, e.Resource)
	}
	return out
}

// PatientBundle is a patient and their clinical data.
type PatientBundle struct {
	PatientID string
	Patient   json.RawMessage
	Resources map[string][]json.RawMessage
}

// subjectOnly decodes the references used to attribute a resource to a
// patient.
type subjectOnly struct {
	Subject *Reference `json:"subject,omitempty"`
	Patient *Reference `json:"patient,omitempty"`
}

// PatientBundles groups the bundle's resources by patient. With a single
// patient every resource belongs to it; otherwise resources are matched on
// subject (or patient) reference and unattributed ones go to the first patient.
func (b *Bundle) PatientBundles() []PatientBundle {
	type entry struct {
		header Resource
		raw    json.RawMessage
	}

	var patients, others []entry
	for _, e := range b.Entry {
		if len(e.Resource) == 0 {
			continue
		}
		h, err := resourceHeader(e.Resource)
		if err != nil || h.ResourceType == "" {
			continue
		}
		if h.ResourceType == "Patient" {
			patients = append(patients, entry{h, e.Resource})
		} else {
			others = append(others, entry{h, e.Resource})
		}
	}
	if len(patients) == 0 {
		return nil
	}

	bundles := make([]PatientBundle, len(patients))
	index := make(map[string]int, len(patients))
	for i, p := range patients {
		index[FormatReference("Patient", p.header.ID)] = i
		bundles[i] = PatientBundle{
			PatientID: p.header.ID,
			Patient:   p.raw,
			Resources: make(map[string][]json.RawMessage),
		}
	}

	for _, res := range others {
		target := 0
		if len(patients) > 1 {
			var s subjectOnly
			_ = json.Unmarshal(res.raw, &s)
			ref := ""
			switch {
			case s.Subject != nil:
				ref = s.Subject.Reference
			case s.Patient != nil:
				ref = s.Patient.Reference
			}
			if idx, ok := index[ref]; ok {
				target = idx
			}
		}
		rt := res.header.ResourceType
		bundles[target].Resources[rt] = append(bundles[target].Resources[rt], res.raw)
	}
	return bundles
}

// FormatReference builds a relative reference like "Patient/123".
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}
