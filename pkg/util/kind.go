package util

import (
	"encoding/json"
	"errors"
	"fmt"
)

const APIVersionV1Alpha1 = "skillbench/v1alpha1"

// TypeMeta identifies the kind of a persisted document. Every authored asset
// document (Skill, Baseline, Project) carries one so a file loaded from the
// wrong place fails loudly instead of half-decoding.
type TypeMeta struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind"`
}

func (t *TypeMeta) GetAPIVersion() string {
	if t.APIVersion == "" {
		return APIVersionV1Alpha1
	}
	return t.APIVersion
}

func (t *TypeMeta) Validate(expectedKind string) error {
	var err error
	err = errors.Join(err, ValidateAPIVersion(t.APIVersion))
	if t.Kind != expectedKind {
		err = errors.Join(err, fmt.Errorf("invalid kind '%s': expected '%s'", t.Kind, expectedKind))
	}
	return err
}

func ValidateAPIVersion(version string) error {
	switch version {
	case "", APIVersionV1Alpha1:
		return nil
	default:
		return fmt.Errorf("unknown apiVersion: '%s'", version)
	}
}

// UnmarshalWithKind unmarshals JSON data into target and validates the "kind"
// field matches the expected kind value. The target parameter should be a
// pointer to the struct being unmarshalled.
func UnmarshalWithKind(data []byte, target any, expectedKind string) error {
	tmp := struct {
		Kind string `json:"kind"`
	}{}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	if tmp.Kind != expectedKind {
		return fmt.Errorf("cannot decode kind '%s' as kind '%s'", tmp.Kind, expectedKind)
	}

	return json.Unmarshal(data, target)
}
