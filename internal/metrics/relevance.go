package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
)

// ReplyEvaluation is the judge's verdict on one bot reply.
type ReplyEvaluation struct {
	ReplyNum    int     `json:"respuesta_num"`
	Score       float64 `json:"score"`
	Reason      string  `json:"razon"`
	Improvement string  `json:"mejora_sugerida"`
}

// RelevanceResult aggregates the per-reply verdicts for one ticket.
type RelevanceResult struct {
	TicketID    string            `json:"ticket_id"`
	Average     float64           `json:"relevancia_promedio"`
	Evaluations []ReplyEvaluation `json:"evaluaciones_individuales"`
	BotReplies  int               `json:"total_respuestas_bot"`
}

const fallbackScore = 3

// EvaluateTicketRelevance scores every bot reply in a ticket with the LLM
// judge and averages the scores. A ticket without messages yields
// ErrTicketNotFound so batch callers can skip it. Judge failures never fail
// the ticket: the reply falls back to a neutral score of 3.
func (e *Evaluator) EvaluateTicketRelevance(ctx context.Context, ticketID string) (RelevanceResult, error) {
	conv, err := e.Store.TicketConversation(ctx, ticketID)
	if err != nil {
		return RelevanceResult{}, err
	}
	if len(conv.Messages) == 0 {
		return RelevanceResult{}, fmt.Errorf("ticket %s: %w", ticketID, ErrTicketNotFound)
	}

	question := ""
	var botReplies []models.Message
	for _, m := range conv.Messages {
		if m.IsBot {
			botReplies = append(botReplies, m)
		} else if question == "" {
			question = m.Content
		}
	}

	res := RelevanceResult{TicketID: ticketID, BotReplies: len(botReplies)}
	var sum float64
	for i, reply := range botReplies {
		ev := e.judgeReply(ctx, question, reply.Content, conv)
		ev.ReplyNum = i + 1
		res.Evaluations = append(res.Evaluations, ev)
		sum += ev.Score
	}
	if len(res.Evaluations) > 0 {
		res.Average = round2(sum / float64(len(res.Evaluations)))
	}
	return res, nil
}

// judgeReply asks the oracle to grade one bot reply. Transport and parse
// failures are logged and replaced with the neutral fallback verdict.
func (e *Evaluator) judgeReply(ctx context.Context, question, reply string, conv models.TicketConversation) ReplyEvaluation {
	fallback := ReplyEvaluation{
		Score:       fallbackScore,
		Reason:      "Evaluación automática no disponible",
		Improvement: "Reintentar con el evaluador LLM disponible",
	}
	if e.Oracle == nil {
		return fallback
	}

	raw, err := e.Oracle.Complete(ctx, oracle.Request{
		Messages:  []oracle.Message{{Role: oracle.RoleUser, Content: e.judgePrompt(question, reply, conv)}},
		Model:     e.Model,
		ForceJSON: true,
	})
	if err != nil {
		e.Logger.Warn().Err(err).Str("ticket_id", conv.TicketID).Msg("judge call failed, using fallback score")
		return fallback
	}

	var parsed struct {
		Score       float64 `json:"score"`
		Reason      string  `json:"razon"`
		Improvement string  `json:"mejora"`
	}
	if err := json.Unmarshal([]byte(oracle.StripFences(raw)), &parsed); err != nil {
		e.Logger.Warn().Err(err).Str("ticket_id", conv.TicketID).Msg("judge returned unparseable verdict, using fallback score")
		return fallback
	}
	return ReplyEvaluation{
		Score:       clampScore(parsed.Score),
		Reason:      parsed.Reason,
		Improvement: parsed.Improvement,
	}
}

func clampScore(s float64) float64 {
	return math.Min(5, math.Max(1, s))
}

func (e *Evaluator) judgePrompt(question, reply string, conv models.TicketConversation) string {
	company := e.Company
	if company == "" {
		company = "Kavak"
	}
	title := conv.Title
	if title == "" {
		title = "N/A"
	}
	category := conv.Category
	if category == "" {
		category = "General"
	}
	description := conv.Description
	if description == "" {
		description = "N/A"
	}
	if question == "" {
		question = "Consulta del cliente no disponible"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Eres un evaluador experto de servicio al cliente de %s (compra-venta de autos seminuevos).\n\n", company)
	fmt.Fprintf(&b, "CONTEXTO DEL TICKET:\n- Título: %s\n- Categoría: %s\n- Descripción: %s\n\n", title, category, description)
	fmt.Fprintf(&b, "PREGUNTA DEL USUARIO:\n%s\n\n", question)
	fmt.Fprintf(&b, "RESPUESTA DEL AGENTE:\n%s\n\n", reply)
	b.WriteString(`Evalúa la relevancia en escala 1-5:

5 = Excelente: Responde completamente, información precisa de la empresa, tono profesional y empático
4 = Buena: Responde adecuadamente, falta algún detalle menor
3 = Aceptable: Responde pero de forma genérica o incompleta
2 = Deficiente: Respuesta vaga, incorrecta o confusa
1 = Mala: No responde la pregunta o información errónea

IMPORTANTE: Considera aspectos específicos del negocio:
- Garantía de 7 días o 500km
- Inspección de 240 puntos
- Financiamiento disponible
- Trámites incluidos
- Entrega a domicilio

CONSIDERACIONES ESPECIALES:
- Sé especialmente estricto con seguridad de datos y compliance
- Valora positivamente la empatía sin sacrificar eficiencia
- Penaliza fuertemente solicitudes de datos sensibles por canales inseguros
- Considera el contexto del cliente (urgencia, frustración, conocimiento técnico)

CONTEXTO CRÍTICO DEL NEGOCIO:
- Los asistentes deben manejar procesos complejos de inspección, documentación, KYC y pagos
- La seguridad de datos es CRÍTICA, nunca deben solicitarse datos sensibles por canales inseguros
- El tono debe ser profesional pero cálido, adaptándose al cliente
- La claridad en tiempos, requisitos y procesos es fundamental

Responde SOLO en formato JSON:
{
  "score": [número 1-5],
  "razon": "[explicación breve]",
  "mejora": "[cómo mejorar la respuesta, o 'ninguna' si score >= 4]"
}`)
	return b.String()
}
