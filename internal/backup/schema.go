package backup

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
)

// documentSchema is the JSON Schema for the backup document format. It goes
// beyond the decode boundary's presence checks: entity objects must carry
// ids and timestamps, the image map must hold strings, and so on.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Novel Companion backup document",
  "type": "object",
  "required": ["version", "novels"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "exportedAt": {"type": "integer"},
    "novels": {"type": "array", "items": {"$ref": "#/definitions/novel"}},
    "characters": {"type": "array", "items": {"$ref": "#/definitions/character"}},
    "places": {"type": "array", "items": {"$ref": "#/definitions/place"}},
    "notes": {"type": "array", "items": {"$ref": "#/definitions/note"}},
    "images": {"type": "object", "additionalProperties": {"type": "string"}}
  },
  "definitions": {
    "idList": {
      "type": "array",
      "items": {"type": "string"}
    },
    "tracked": {
      "type": "object",
      "required": ["id", "createdAt", "updatedAt"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "createdAt": {"type": "string", "format": "date-time"},
        "updatedAt": {"type": "string", "format": "date-time"}
      }
    },
    "novel": {
      "allOf": [
        {"$ref": "#/definitions/tracked"},
        {
          "type": "object",
          "required": ["title"],
          "properties": {
            "title": {"type": "string"},
            "author": {"type": "string"},
            "coverImage": {"type": "string"}
          }
        }
      ]
    },
    "character": {
      "allOf": [
        {"$ref": "#/definitions/tracked"},
        {
          "type": "object",
          "required": ["novelId", "name"],
          "properties": {
            "novelId": {"type": "string", "minLength": 1},
            "name": {"type": "string"},
            "description": {"type": "string"},
            "images": {"$ref": "#/definitions/idList"},
            "tags": {"type": "array", "items": {"type": "string"}},
            "linkedCharacterIds": {"$ref": "#/definitions/idList"},
            "linkedPlaceIds": {"$ref": "#/definitions/idList"}
          }
        }
      ]
    },
    "place": {
      "allOf": [
        {"$ref": "#/definitions/tracked"},
        {
          "type": "object",
          "required": ["novelId", "name"],
          "properties": {
            "novelId": {"type": "string", "minLength": 1},
            "name": {"type": "string"},
            "description": {"type": "string"},
            "images": {"$ref": "#/definitions/idList"},
            "linkedCharacterIds": {"$ref": "#/definitions/idList"}
          }
        }
      ]
    },
    "note": {
      "allOf": [
        {"$ref": "#/definitions/tracked"},
        {
          "type": "object",
          "required": ["novelId", "title"],
          "properties": {
            "novelId": {"type": "string", "minLength": 1},
            "title": {"type": "string"},
            "content": {"type": "string"},
            "linkedCharacterIds": {"$ref": "#/definitions/idList"},
            "linkedPlaceIds": {"$ref": "#/definitions/idList"}
          }
        }
      ]
    }
  }
}`

// ValidateDocument runs the full JSON Schema over raw document bytes.
// DecodeDocument's presence checks are all an import requires; this is for
// callers that want to vet a document before offering a restore.
func ValidateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return domainerrors.Validation("backup document is not valid JSON").WithCause(err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return domainerrors.ValidationWithDetails("backup document failed schema validation", details)
}
