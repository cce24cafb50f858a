package index

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Field names of the occupation, skill and percolator documents.
const (
	FieldPrefLabel              = "prefLabel"
	FieldPrefLabelKeyword       = "prefLabel.keyword"
	FieldRelatedOccupationID    = "relatedOccupationId"
	FieldRelatedOccupationLabel = "relatedOccupationLabel"
	FieldIsGenericCategory      = "isGenericCategory"
	FieldSkillIDs               = "skillIds"
	FieldOccupationCategoryIDs  = "occupationCategoryIds"
)

type OccupationDocument struct {
	ID                     string   `json:"id,omitempty"`
	PrefLabel              string   `json:"prefLabel,omitempty"`
	RelatedOccupationID    string   `json:"relatedOccupationId,omitempty"`
	RelatedOccupationLabel string   `json:"relatedOccupationLabel,omitempty"`
	IsGenericCategory      bool     `json:"isGenericCategory,omitempty"`
	SkillIDs               []string `json:"skillIds,omitempty"`
}

type SkillDocument struct {
	ID                    string   `json:"id,omitempty"`
	PrefLabel             string   `json:"prefLabel,omitempty"`
	OccupationCategoryIDs []string `json:"occupationCategoryIds,omitempty"`
}

// DecodeOccupation turns a hit into an OccupationDocument. The hit id wins over any id in the source.
func DecodeOccupation(hit Hit) (*OccupationDocument, error) {
	var doc OccupationDocument
	if err := decodeSource(hit.Source, &doc); err != nil {
		return nil, fmt.Errorf("decoding occupation %s: %w", hit.ID, err)
	}
	doc.ID = hit.ID

	return &doc, nil
}

func DecodeSkill(hit Hit) (*SkillDocument, error) {
	var doc SkillDocument
	if err := decodeSource(hit.Source, &doc); err != nil {
		return nil, fmt.Errorf("decoding skill %s: %w", hit.ID, err)
	}
	doc.ID = hit.ID

	return &doc, nil
}

func decodeSource(source map[string]any, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       firstElementHook,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(source)
}

// firstElementHook decodes a list into a scalar string field by taking its first element.
// Older occupation documents carry relatedOccupationId as an array.
func firstElementHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if from.Kind() != reflect.Slice && from.Kind() != reflect.Array {
		return data, nil
	}

	v := reflect.ValueOf(data)
	if v.Len() == 0 {
		return "", nil
	}

	return v.Index(0).Interface(), nil
}
