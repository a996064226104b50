// Package classify assigns a catalog category to a component from its id,
// name and description.
package classify

import "strings"

// Category is one of the fixed catalog category labels.
type Category string

const (
	BasicProtection         Category = "basic_protection"
	OvercurrentProtection   Category = "overcurrent_protection"
	SurgeProtectionDetailed Category = "surge_protection_detailed"
	ControlAutomation       Category = "control_automation"
	MeasurementControl      Category = "measurement_control"
	EmergencySpecial        Category = "emergency_special"
	PVEV                    Category = "pv_ev"
	ConnectionElements      Category = "connection_elements"
	Organization            Category = "organization"
	AdditionalProtection    Category = "additional_protection"
	AdditionalAutomation    Category = "additional_automation"
	AuxiliaryPower          Category = "auxiliary_power"
	Cables                  Category = "cables"
	Required                Category = "required"
	Other                   Category = "other"
)

// All lists every category in rule order, Other last.
var All = []Category{
	BasicProtection,
	OvercurrentProtection,
	SurgeProtectionDetailed,
	ControlAutomation,
	MeasurementControl,
	EmergencySpecial,
	PVEV,
	ConnectionElements,
	Organization,
	AdditionalProtection,
	AdditionalAutomation,
	AuxiliaryPower,
	Cables,
	Required,
	Other,
}

var displayNames = map[Category]string{
	BasicProtection:         "Zabezpieczenia podstawowe",
	OvercurrentProtection:   "Zabezpieczenia nadprądowe",
	SurgeProtectionDetailed: "Zabezpieczenia przepięciowe",
	ControlAutomation:       "Sterowanie i automatyka",
	MeasurementControl:      "Pomiary i kontrola",
	EmergencySpecial:        "Zasilanie awaryjne",
	PVEV:                    "PV, EV i nowoczesne instalacje",
	ConnectionElements:      "Elementy łączeniowe i rozdział",
	Organization:            "Organizacja i estetyka",
	AdditionalProtection:    "Ochrona i bezpieczeństwo",
	AdditionalAutomation:    "Automatyka i sterowanie - dodatkowe",
	AuxiliaryPower:          "Zasilanie pomocnicze",
	Cables:                  "Kable instalacyjne",
	Required:                "Rzeczy obowiązkowe",
	Other:                   "Inne",
}

// DisplayName is the human-readable category name stored in
// component_categories.name.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid reports whether c is one of the known labels.
func (c Category) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// input holds the lower-cased fields a rule matches against.
type input struct {
	id, name, desc string
}

// inText reports whether any keyword occurs in the name or the description.
func (in input) inText(keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(in.name, kw) || strings.Contains(in.desc, kw) {
			return true
		}
	}
	return false
}

func (in input) idIn(ids ...string) bool {
	for _, id := range ids {
		if in.id == id {
			return true
		}
	}
	return false
}

type rule struct {
	category Category
	match    func(in input) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{BasicProtection, func(in input) bool {
		return in.inText("rozłącznik", "izolacyjny", "pen", "podział", "półprzewodnik") ||
			in.idIn("isolator", "pen_splitter")
	}},
	{OvercurrentProtection, func(in input) bool {
		return strings.HasPrefix(in.id, "mcb_") ||
			strings.Contains(in.name, "wyłącznik") ||
			strings.Contains(in.desc, "nadprądowy") ||
			strings.Contains(in.desc, "mc b")
	}},
	{SurgeProtectionDetailed, func(in input) bool {
		return strings.Contains(in.desc, "przepięć") ||
			strings.Contains(in.id, "surge") ||
			strings.Contains(in.desc, "warystor") ||
			strings.Contains(in.id, "spd")
	}},
	{ControlAutomation, func(in input) bool {
		return in.inText("przekaźnik", "stycznik", "kontaktor", "sterowanie", "automatyka", "bistabilny", "timer", "contactor") ||
			in.idIn("bistable_relay", "contactor", "timer_relay", "smart_module")
	}},
	{MeasurementControl, func(in input) bool {
		return in.inText("amperomierz", "woltomierz", "miernik", "multimetr", "pomiary", "kontrola", "licznik", "energy_meter") ||
			in.idIn("ammeter", "voltmeter", "power_meter", "phase_indicator", "spd_indicator")
	}},
	{EmergencySpecial, func(in input) bool {
		return in.inText("awaryjne", "zasilacz", "backup", "akumulator", "bateria", "ups") ||
			in.idIn("power_supply_24v", "power_supply_12v", "network_generator_switch", "fire_switch", "ups_module")
	}},
	{PVEV, func(in input) bool {
		return in.inText("fotowolta", "pv", "ev", "samochód elektryczny", "ładowarka") ||
			in.idIn("pv_ac_protection", "pv_dc_disconnect", "ev_charger_protection", "ev_energy_meter")
	}},
	{ConnectionElements, func(in input) bool {
		return in.inText("blok", "rozdzielczy", "rozgałęźny", "szyna", "łączeniowe", "rozdzielacz", "mostek", "bridge") ||
			in.idIn("distribution_block", "branch_distribution_block", "comb_bridge_1f", "comb_bridge_3f", "distribution_busbar")
	}},
	{Organization, func(in input) bool {
		return in.inText("pusty", "moduł", "organizacja", "estetyka", "pokrywa", "ramka", "etykieta", "kanał", "duct") ||
			in.idIn("n_pe_busbar", "gsu", "comb_busbar", "cable_duct", "module_labels")
	}},
	{AdditionalProtection, func(in input) bool {
		return in.inText("awaryjny", "przeciwpożarowy", "emergency", "fire", "voltage_relay", "overvoltage_relay") ||
			in.idIn("emergency_switch", "voltage_relay", "overvoltage_relay")
	}},
	{AdditionalAutomation, func(in input) bool {
		return in.inText("io_module", "blind_controller", "heating_controller", "current_relay") ||
			in.idIn("current_relay", "io_module", "blind_controller", "heating_controller")
	}},
	{AuxiliaryPower, func(in input) bool {
		return in.inText("priorytet", "priority") || in.idIn("priority_relay")
	}},
	{Cables, func(in input) bool {
		return strings.HasPrefix(in.id, "cable_") ||
			strings.Contains(in.name, "kabel") ||
			strings.Contains(in.name, "przewód")
	}},
	{Required, func(in input) bool {
		return in.idIn("din_rail", "n_pe_rail", "rcd_separator", "blank_module", "circuit_description", "door_schematic")
	}},
}

// Determine returns the first category whose rule matches the lower-cased
// id, name or description, and Other when none does. It is a pure function of
// its arguments.
func Determine(id, name, description string) Category {
	in := input{
		id:   strings.ToLower(id),
		name: strings.ToLower(name),
		desc: strings.ToLower(description),
	}
	for _, r := range rules {
		if r.match(in) {
			return r.category
		}
	}
	return Other
}
