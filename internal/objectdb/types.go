// Package objectdb stores point objects and their property bags in a SQLite
// database that object sources read from.
package objectdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is a single stored object.
type Record struct {
	Properties map[string]any
	ID         string
	Lat        float64
	Lon        float64
}

// Metadata describes the object set.
type Metadata struct {
	Name        string // Human-readable dataset identifier
	Description string // Human-readable description
	Attribution string // Attribution text
	Origin      string // Where the objects came from (file path, overpass selector)
	Bounds      [4]float64
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Attribution != "" {
		result["attribution"] = m.Attribution
	}
	if m.Origin != "" {
		result["origin"] = m.Origin
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}

	return result
}

// metadataFromMap is the inverse of ToMap. Unparseable bounds are ignored.
func metadataFromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Description: values["description"],
		Attribution: values["attribution"],
		Origin:      values["origin"],
	}

	// Parse bounds: "minLon,minLat,maxLon,maxLat"
	if v, ok := values["bounds"]; ok {
		parts := strings.Split(v, ",")
		if len(parts) == 4 {
			for i, part := range parts {
				if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
					meta.Bounds[i] = f
				}
			}
		}
	}

	return meta
}
