package domain

// Response é o resultado entregue ao chamador: ou Result (sucesso) ou Err.
//
// ID e Priority identificam a submissão que originou a resposta, inclusive nas
// respostas QueueFull sintetizadas sem chamada remota.
type Response struct {
	ID       string
	Priority Priority
	Result   *AnalyzeResponse
	Err      error
}

func (r Response) OK() bool { return r.Err == nil }

// AnalyzeResponse espelha o corpo de sucesso da API.
//
// AttributeScores tem as mesmas chaves de requestedAttributes (exceto atributos cujo
// summaryScore ficou abaixo de scoreThreshold). Languages espelha o pedido ou, se
// vazio, a língua detectada. ClientToken espelha o do pedido.
type AnalyzeResponse struct {
	AttributeScores   map[Attribute]AttributeScores `json:"attributeScores"`
	Languages         []LanguageCode                `json:"languages"`
	DetectedLanguages []LanguageCode                `json:"detectedLanguages,omitempty"`
	ClientToken       string                        `json:"clientToken,omitempty"`
}

type AttributeScores struct {
	SummaryScore Score       `json:"summaryScore"`
	SpanScores   []SpanScore `json:"spanScores,omitempty"`
}

type Score struct {
	Value float64   `json:"value"`
	Type  ScoreType `json:"type"`
}

// SpanScore pontua o trecho [Begin, End) de comment.text.
type SpanScore struct {
	Begin int   `json:"begin"`
	End   int   `json:"end"`
	Score Score `json:"score"`
}

// Summary retorna o summaryScore de um atributo, se presente.
func (r *AnalyzeResponse) Summary(a Attribute) (float64, bool) {
	if r == nil {
		return 0, false
	}
	s, ok := r.AttributeScores[a]
	if !ok {
		return 0, false
	}
	return s.SummaryScore.Value, true
}
