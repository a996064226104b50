package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermine(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		compName    string
		description string
		want        Category
	}{
		{"isolator by keyword", "isolator", "Rozłącznik izolacyjny modułowy", "", BasicProtection},
		{"isolator by id", "ISOLATOR", "X", "", BasicProtection},
		{"upper-case polish keyword", "x1", "ROZŁĄCZNIK", "", BasicProtection},
		{"mcb prefix", "mcb_b16", "B16A", "", OvercurrentProtection},
		{"name wins over pv id", "pv_ac_protection", "Wyłącznik PV", "", OvercurrentProtection},
		{"spd in id", "spd_type2", "Ogranicznik SPD Typ 2", "Ochrona", SurgeProtectionDetailed},
		{"contactor", "contactor", "Stycznik modułowy", "", ControlAutomation},
		{"ammeter", "ammeter", "Amperomierz", "", MeasurementControl},
		{"cable prefix", "cable_ykxs_3x15", "Kabel YKXS 3x1,5", "", Cables},
		{"busbar keyword", "din_rail", "Szyna montażowa DIN", "", ConnectionElements},
		{"required id", "rcd_separator", "Separator RCD", "", Required},
		{"priority relay", "priority_relay", "Relay", "", AuxiliaryPower},
		{"unknown", "widget", "Gadżet", "", Other},
		{"empty input", "", "", "", Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Determine(tt.id, tt.compName, tt.description))
		})
	}
}

func TestDetermineIsDeterministicAndTotal(t *testing.T) {
	inputs := [][3]string{
		{"", "", ""},
		{"a", "b", "c"},
		{"ups_module", "Moduł UPS zasilania awaryjnego", "Zasilacz awaryjny"},
		{"ev_energy_meter", "Licznik energii dla ładowarki EV", ""},
		{"💡", "ŻÓŁĆ", "\x00\xff"},
	}
	for _, in := range inputs {
		first := Determine(in[0], in[1], in[2])
		assert.True(t, first.Valid(), "label %q for %v must be known", first, in)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Determine(in[0], in[1], in[2]))
		}
	}
}

func TestDisplayName(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range All {
		name := c.DisplayName()
		assert.NotEmpty(t, name)
		assert.NotEqual(t, string(c), name, "%s should have a display name", c)
		assert.False(t, seen[name], "duplicate display name %q", name)
		seen[name] = true
	}
	assert.Equal(t, "custom", Category("custom").DisplayName())
	assert.False(t, Category("custom").Valid())
	assert.Len(t, All, 15)
}
