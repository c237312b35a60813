// Package ranking turns conversation and ticket text into a prioritized
// list of intents and the support tools that would serve them.
package ranking

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolSketch is a one-paragraph tool proposal with its candidate API surface.
type ToolSketch struct {
	Pitch     string   `yaml:"pitch" json:"pitch"`
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
}

// Config maps intents to detection patterns, tool names, and effort
// estimates. It ships with a built-in default and can be overridden from a
// YAML file or extended by the LLM proposal flow.
type Config struct {
	IntentPatterns map[string][]string   `yaml:"intent_patterns" json:"intent_patterns"`
	IntentToTool   map[string]string     `yaml:"intent_to_tool" json:"intent_to_tool"`
	EffortDefaults map[string]int        `yaml:"effort_defaults" json:"effort_defaults"`
	ToolSketch     map[string]ToolSketch `yaml:"tool_sketch" json:"tool_sketch"`
}

// DefaultConfig returns the built-in intent table for the used-car support
// domain. Patterns are matched case-insensitively against whole-ticket text.
func DefaultConfig() Config {
	return Config{
		IntentPatterns: map[string][]string{
			"offer_24h":             {`\boferta\b.*24`, `\boffer\b.*24`},
			"status_eval":           {`evaluaci[oó]n mec[aá]nica`, `estado.*(eval|inspecci[oó]n)`, `status.*(eval|inspect)`},
			"payment_status":        {`\bpago(s)?\b`, `transferencia`, `dep[oó]sit`},
			"reschedule_inspection": {`reprogram(ar|aci[oó]n).*(inspecci[oó]n|visita)`, `cambi(ar|o).*cita`, `reagendar`},
			"credit_prequal":        {`cr[eé]dito`, `tasa(s)?`, `financ`, `pre.?aprobaci[oó]n`},
			"warranty_claim":        {`garant[ií]a`, `falla el[eé]ctrica`, `cobertura`},
			"kyc_docs":              {`document(o|os|aci[oó]n)`, `\bKYC\b`, `identificaci[oó]n`, `comprobante`},
			"appointment":           {`\bcita\b`, `agendar`, `programar`},
			"tradein":               {`tomar.*a.*cuenta`, `trade-?in`, `cambio.*auto`},
			"refund":                {`reembolso`, `devoluci[oó]n`},
			"delivery_tracking":     {`entrega`, `rastreo`, `tracking`, `fecha.*entrega`},
			"price_negotiation":     {`mejorar.*precio`, `negociar`, `descuento`},
		},
		IntentToTool: map[string]string{
			"offer_24h":             "OfferIn24 Orchestrator",
			"status_eval":           "Inspection/Workshop Status Tracker",
			"payment_status":        "Payout Status Tracker",
			"reschedule_inspection": "Inspection Re-Scheduler",
			"credit_prequal":        "Credit Pre-Qualification Simulator",
			"warranty_claim":        "Warranty Coverage Checker",
			"kyc_docs":              "Doc & KYC Collector",
			"appointment":           "Scheduling Assistant",
			"tradein":               "Trade-in Estimator",
			"refund":                "Refund Request Wizard",
			"delivery_tracking":     "Vehicle Delivery Tracker",
			"price_negotiation":     "Smart Offer/Counteroffer Assistant",
		},
		EffortDefaults: map[string]int{
			"offer_24h": 3, "status_eval": 2, "payment_status": 2, "reschedule_inspection": 1,
			"credit_prequal": 3, "warranty_claim": 3, "kyc_docs": 1, "appointment": 1,
			"tradein": 2, "refund": 2, "delivery_tracking": 2, "price_negotiation": 2,
		},
		ToolSketch: map[string]ToolSketch{
			"OfferIn24 Orchestrator": {
				Pitch: "Orquesta tasación <24h: fotos, docs, agenda inspección y oferta final.",
				Endpoints: []string{
					"POST /offers/rapid-intake {vehicle, owner_id, photos[]} -> intake_id",
					"POST /offers/{intake_id}/schedule-inspection {slot_id} -> inspection_id",
					"GET  /offers/{intake_id}/status -> {stage, eta_hours}",
					"POST /offers/{intake_id}/finalize -> {offer_amount, validity}",
				},
			},
			"Inspection/Workshop Status Tracker": {
				Pitch: "Consulta estado de evaluación con ETA y próximos pasos.",
				Endpoints: []string{
					"GET /inspections/{vin|ticket_id}/status -> {stage, eta_hours, findings}",
					"POST /inspections/{id}/notify {channel, template_id}",
				},
			},
			"Payout Status Tracker": {
				Pitch: "Transparencia del pago con hitos y evidencia bancaria.",
				Endpoints: []string{
					"GET /payouts/{ticket_id}/status -> {stage, bank_ref, eta_hours}",
					"POST /payouts/{ticket_id}/upload-proof {file}",
				},
			},
		},
	}
}

// LoadConfig reads a YAML intent table from path. An empty path returns the
// built-in default. Maps missing from the file fall back to the default so a
// partial override file stays valid.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read intent config: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("parse intent config: %w", err)
	}
	if loaded.IntentPatterns != nil {
		cfg.IntentPatterns = loaded.IntentPatterns
	}
	if loaded.IntentToTool != nil {
		cfg.IntentToTool = loaded.IntentToTool
	}
	if loaded.EffortDefaults != nil {
		cfg.EffortDefaults = loaded.EffortDefaults
	}
	if loaded.ToolSketch != nil {
		cfg.ToolSketch = loaded.ToolSketch
	}
	return cfg, nil
}

// compiledPatterns holds per-intent case-insensitive regexes. Patterns that
// do not compile are dropped, matching the tolerant merge behavior.
type compiledPatterns map[string][]*regexp.Regexp

func (c Config) compile() compiledPatterns {
	out := make(compiledPatterns, len(c.IntentPatterns))
	for intent, pats := range c.IntentPatterns {
		for _, p := range pats {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				continue
			}
			out[intent] = append(out[intent], re)
		}
	}
	return out
}

// DetectIntents returns the sorted intents whose patterns match the text.
func DetectIntents(text string, patterns compiledPatterns) []string {
	var intents []string
	for intent, res := range patterns {
		for _, re := range res {
			if re.MatchString(text) {
				intents = append(intents, intent)
				break
			}
		}
	}
	sort.Strings(intents)
	return intents
}

// Merge folds an LLM-proposed config into base, keeping only well-formed
// entries: patterns must compile, tool names must be non-empty, and effort
// must be 1, 2, or 3.
func Merge(base, proposed Config) Config {
	merged := Config{
		IntentPatterns: make(map[string][]string, len(base.IntentPatterns)),
		IntentToTool:   make(map[string]string, len(base.IntentToTool)),
		EffortDefaults: make(map[string]int, len(base.EffortDefaults)),
		ToolSketch:     make(map[string]ToolSketch, len(base.ToolSketch)),
	}
	for k, v := range base.IntentPatterns {
		merged.IntentPatterns[k] = v
	}
	for k, v := range base.IntentToTool {
		merged.IntentToTool[k] = v
	}
	for k, v := range base.EffortDefaults {
		merged.EffortDefaults[k] = v
	}
	for k, v := range base.ToolSketch {
		merged.ToolSketch[k] = v
	}

	for intent, pats := range proposed.IntentPatterns {
		var cleaned []string
		for _, p := range pats {
			if _, err := regexp.Compile("(?i)" + p); err == nil {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			merged.IntentPatterns[intent] = cleaned
		}
	}
	for intent, tool := range proposed.IntentToTool {
		if t := strings.TrimSpace(tool); t != "" {
			merged.IntentToTool[intent] = t
		}
	}
	for intent, effort := range proposed.EffortDefaults {
		if effort >= 1 && effort <= 3 {
			merged.EffortDefaults[intent] = effort
		}
	}
	for name, sketch := range proposed.ToolSketch {
		merged.ToolSketch[name] = ToolSketch{
			Pitch:     strings.TrimSpace(sketch.Pitch),
			Endpoints: sketch.Endpoints,
		}
	}
	return merged
}
