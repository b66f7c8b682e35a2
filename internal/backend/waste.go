// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/gateway"
)

// NotAvailable is the backend's placeholder for missing reference data.
const NotAvailable = "Not Available"

// =============================================================================
// CLASSIFICATION TYPES
// =============================================================================

// Image is one photo to classify.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Instruction is one recycling step.
type Instruction struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Method is one decomposition method row. When Available is false the
// backend had no data and every detail field holds NotAvailable.
type Method struct {
	Name          string
	Available     bool
	Time          string
	Process       string
	Impact        string
	Recyclability string
	Factors       string
}

// Classification is one detected waste item.
type Classification struct {
	WasteName       string
	Category        string
	Confidence      float64
	EstimatedWeight float64

	// InstructionsAvailable is false when the backend sent a placeholder
	// string instead of a step list.
	InstructionsAvailable bool
	Instructions          []Instruction

	// Methods keeps the key order of the response object.
	Methods []Method
}

// ClassifyResult is the decoded /waste/classify response.
type ClassifyResult struct {
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	ExecutionTime  float64          `json:"execution_time"`
	Classification []Classification `json:"classification"`
}

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify uploads img to the classifier.
func (c *Client) Classify(ctx context.Context, img Image) (ClassifyResult, error) {
	ctx, cancel := c.withTimeout(ctx, true)
	defer cancel()

	var res ClassifyResult
	err := c.gw.Upload(ctx, "/waste/classify", gateway.File{
		Field:       "file",
		Name:        img.Name,
		ContentType: img.ContentType,
		Data:        img.Data,
	}, &res)
	if err != nil {
		return ClassifyResult{}, err
	}
	c.log.Debug("classified",
		zap.Int("results", len(res.Classification)),
		zap.Float64("execution_time", res.ExecutionTime))
	return res, nil
}

// =============================================================================
// DECODING
// =============================================================================

// UnmarshalJSON decodes one classification, tolerating the placeholder
// strings the backend uses when an item has no reference data.
func (cl *Classification) UnmarshalJSON(data []byte) error {
	var raw struct {
		WasteName       string          `json:"waste_name"`
		Category        string          `json:"category"`
		Confidence      float64         `json:"confidence"`
		EstimatedWeight float64         `json:"estimated_weight"`
		Instructions    json.RawMessage `json:"recycling_instructions"`
		Methods         json.RawMessage `json:"decomposition_methods"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*cl = Classification{
		WasteName:       raw.WasteName,
		Category:        raw.Category,
		Confidence:      raw.Confidence,
		EstimatedWeight: raw.EstimatedWeight,
	}

	if placeholder(raw.Instructions) {
		cl.InstructionsAvailable = false
	} else {
		if err := json.Unmarshal(raw.Instructions, &cl.Instructions); err != nil {
			return fmt.Errorf("recycling_instructions: %w", err)
		}
		cl.InstructionsAvailable = true
	}

	if !placeholder(raw.Methods) {
		methods, err := decodeMethods(raw.Methods)
		if err != nil {
			return fmt.Errorf("decomposition_methods: %w", err)
		}
		cl.Methods = methods
	}
	return nil
}

// placeholder reports whether v is absent, null or a bare string.
func placeholder(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || t[0] == '"'
}

// decodeMethods walks the object token by token so rows keep the order
// the keys appear in the response.
func decodeMethods(data json.RawMessage) ([]Method, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var methods []Method
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		m, err := decodeMethod(name, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		methods = append(methods, m)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return methods, nil
}

func decodeMethod(name string, value json.RawMessage) (Method, error) {
	if placeholder(value) {
		return Method{
			Name:          name,
			Time:          NotAvailable,
			Process:       NotAvailable,
			Impact:        NotAvailable,
			Recyclability: NotAvailable,
			Factors:       NotAvailable,
		}, nil
	}

	var details map[string]json.RawMessage
	if err := json.Unmarshal(value, &details); err != nil {
		return Method{}, err
	}
	recyclability := details["recyclability"]
	if recyclability == nil {
		recyclability = details["recyclability_rating"]
	}
	return Method{
		Name:          name,
		Available:     true,
		Time:          scalarText(details["time"]),
		Process:       scalarText(details["process"]),
		Impact:        scalarText(details["impact"]),
		Recyclability: scalarText(recyclability),
		Factors:       scalarText(details["factors"]),
	}, nil
}

// scalarText renders a detail value for display: strings unquoted,
// numbers and booleans verbatim, lists joined with ", ".
func scalarText(v json.RawMessage) string {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return ""
	}
	switch t[0] {
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(t, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if s := scalarText(it); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	case '{':
		return compactJSON(t)
	}
	if f, err := strconv.ParseFloat(string(t), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(t)
}

func compactJSON(v []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
