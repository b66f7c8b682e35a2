// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/ecosort-tui/internal/backend"
)

func TestFromText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rinse the can.", "Rinse the can."},
		{"", NoResponse},
		{"  \n\t", "  \n\t"},
	}
	for _, tt := range tests {
		p := FromText(tt.in)
		assert.Equal(t, tt.want, p.Plain)
		assert.Empty(t, p.Structured)
	}
}

func TestFromClassification_Empty(t *testing.T) {
	p := FromClassification(backend.ClassifyResult{Success: true})
	assert.Equal(t, Payload{Plain: NoClassification}, p)
}

func bottle() backend.Classification {
	return backend.Classification{
		WasteName:             "Plastic Bottle",
		Category:              "Plastic",
		Confidence:            0.9234,
		EstimatedWeight:       25,
		InstructionsAvailable: true,
		Instructions: []backend.Instruction{
			{Step: 1, Title: "Empty", Description: "Pour out any liquid."},
			{Step: 2, Title: "Rinse", Description: "Rinse with water."},
		},
		Methods: []backend.Method{
			{Name: "ocean", Available: true, Time: "450 years", Process: "Photo|degradation", Impact: "Microplastics\nin fish", Recyclability: "High", Factors: "UV, salinity"},
			{Name: "landfill", Available: true, Time: "1000 years", Process: "Slow", Impact: "Leaching", Recyclability: "4", Factors: "Oxygen"},
		},
	}
}

func TestFromClassification_Narrative(t *testing.T) {
	p := FromClassification(backend.ClassifyResult{Classification: []backend.Classification{bottle(), {WasteName: "ignored"}}})

	want := "**🗑 Waste Name:** Plastic Bottle\n" +
		"**📂 Category:** Plastic\n" +
		"**🎯 Confidence:** 92.34%\n" +
		"**⚖ Estimated Weight:** 25g\n\n" +
		"**♻ Recycling Instructions:**\n\n" +
		"**Step 1: Empty**\nPour out any liquid.\n\n" +
		"**Step 2: Rinse**\nRinse with water.\n\n" +
		"**🕰 Decomposition Methods:**\n\n"
	assert.Equal(t, want, p.Plain)
	assert.NotContains(t, p.Plain, "ignored")
}

func TestFromClassification_Table(t *testing.T) {
	p := FromClassification(backend.ClassifyResult{Classification: []backend.Classification{bottle()}})

	lines := strings.Split(strings.TrimRight(p.Structured, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, methodTableHeading, lines[0])
	assert.Equal(t, `| Ocean | 450 years | Photo\|degradation | Microplastics in fish | High | UV, salinity |`, lines[2])
	assert.Equal(t, "| Landfill | 1000 years | Slow | Leaching | 4 | Oxygen |", lines[3])
	assert.Equal(t, p.Plain+p.Structured, p.Text())
}

func TestFromClassification_NotAvailable(t *testing.T) {
	cl := backend.Classification{
		WasteName:  "Mystery",
		Category:   "Unknown",
		Confidence: 0.5,
		Methods: []backend.Method{{
			Name: "buried", Time: NotAvailable, Process: NotAvailable,
			Impact: NotAvailable, Recyclability: NotAvailable, Factors: NotAvailable,
		}},
	}
	p := FromClassification(backend.ClassifyResult{Classification: []backend.Classification{cl}})

	assert.Contains(t, p.Plain, "**♻ Recycling Instructions:**\n\nNot Available\n\n")
	assert.Contains(t, p.Plain, "**⚖ Estimated Weight:** 0g")
	assert.Contains(t, p.Structured,
		"| Buried | Not Available | Not Available | Not Available | Not Available | Not Available |")
}

func TestFromClassification_NoMethods(t *testing.T) {
	cl := bottle()
	cl.Methods = nil
	p := FromClassification(backend.ClassifyResult{Classification: []backend.Classification{cl}})

	assert.True(t, strings.HasSuffix(p.Plain, "**🕰 Decomposition Methods:**\n\nNot Available\n"))
	assert.Empty(t, p.Structured)
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"ocean":    "Ocean",
		"Landfill": "Landfill",
		"émission": "Émission",
		"1st pass": "1st pass",
	}
	for in, want := range tests {
		assert.Equal(t, want, Capitalize(in), in)
	}
}
