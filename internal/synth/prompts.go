// Package synth generates synthetic customer-support conversations through
// an LLM and repairs the output into the dataset schema.
package synth

import (
	"fmt"
	"strings"
)

// Sampling pools for conversation scenarios. Spanish is weighted four to
// one over English, matching the product's traffic mix.
var (
	DefaultContexts  = []string{"buying", "ask", "feedback", "service", "credit", "warranty"}
	DefaultTones     = []string{"amable", "empático", "formal", "resolutivo", "apologético", "directo", "entusiasta"}
	DefaultChannels  = []string{"whatsapp", "webchat", "email", "telefono"}
	DefaultLanguages = []string{"es", "es", "es", "es", "en"}
)

// PromptProvider yields the generation prompts, with optional patches from
// the suggestion flow layered over the defaults. User patches may reference
// {contexto}, {tono}, {idioma}, and {canal}.
type PromptProvider struct {
	SystemPatch string
	UserPatch   string
	Company     string
}

func (p PromptProvider) company() string {
	if p.Company != "" {
		return p.Company
	}
	return "Kavak"
}

func (p PromptProvider) System() string {
	if s := strings.TrimSpace(p.SystemPatch); s != "" {
		return s
	}
	return fmt.Sprintf("Eres un generador de conversaciones realistas de atención a clientes para %s. "+
		"Prioriza claridad, empatía y cumplimiento. No inventes datos sensibles. "+
		"Mantén diálogos breves y creíbles, en el idioma indicado.", p.company())
}

func (p PromptProvider) User(contexto, tono, idioma, canal string) string {
	lang := "español"
	if idioma != "es" {
		lang = "inglés"
	}
	if u := strings.TrimSpace(p.UserPatch); u != "" {
		return strings.NewReplacer(
			"{contexto}", contexto,
			"{tono}", tono,
			"{idioma}", lang,
			"{canal}", canal,
		).Replace(u)
	}
	return strings.TrimSpace(fmt.Sprintf(`
Crea una conversación breve entre **agente de %s** y **cliente**.
- contexto: %s
- tono: %s
- idioma: %s
- canal: %s

Requisitos:
1) Primer turno del **cliente**.
2) Cumple políticas (documentos, inspección, pagos, garantías, crédito, KYC si aplica).
3) Si no se resuelve, deja claro el siguiente paso (ticket, escalar, cita, docs).
4) Respuestas concisas, naturales (no robóticas).
5) Devuelve **solo un JSON** con claves: meta, transcript, outcomes.
`, p.company(), contexto, tono, lang, canal))
}
