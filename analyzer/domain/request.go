package domain

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

const (
	// MaxCommentBytes é o limite da API para comment.text.
	MaxCommentBytes = 20_000
	// MaxContextEntryBytes é o limite da API para cada entrada de contexto.
	MaxContextEntryBytes = 1_000_000
)

// TextType: hoje a API só aceita PLAIN_TEXT.
type TextType string

const (
	PlainText TextType = "PLAIN_TEXT"
	HTML      TextType = "HTML"
)

// ScoreType: hoje a API só devolve PROBABILITY (valores em [0,1]).
type ScoreType string

const Probability ScoreType = "PROBABILITY"

// Request é o corpo do método analyze. Depois de submetido é tratado como imutável:
// o dispatcher só o carrega por valor até o Caller.
type Request struct {
	Comment             Comment                        `json:"comment"`
	Context             *Context                       `json:"context,omitempty"`
	RequestedAttributes map[Attribute]AttributeOptions `json:"requestedAttributes"`
	SpanAnnotations     *bool                          `json:"spanAnnotations,omitempty"`
	Languages           []LanguageCode                 `json:"languages,omitempty"`
	DoNotStore          *bool                          `json:"doNotStore,omitempty"`
	ClientToken         string                         `json:"clientToken,omitempty"`
	SessionID           string                         `json:"sessionId,omitempty"`
	CommunityID         string                         `json:"communityId,omitempty"`
}

type Comment struct {
	Text string   `json:"text"`
	Type TextType `json:"type,omitempty"`
}

// Context não é usado pela API atualmente, mas é aceito no wire.
type Context struct {
	Entries []Entry `json:"entries"`
}

type Entry struct {
	Text string   `json:"text"`
	Type TextType `json:"type,omitempty"`
}

type AttributeOptions struct {
	ScoreType      ScoreType `json:"scoreType,omitempty"`
	ScoreThreshold *float64  `json:"scoreThreshold,omitempty"`
}

var (
	ErrNoAttributes         = errors.New("analyzer: requested attributes cannot be empty")
	ErrCommentTooLong       = errors.New("analyzer: comment text cannot exceed 20kb")
	ErrContextTooLong       = errors.New("analyzer: context entry text cannot exceed 1MB")
	ErrIncompatibleLanguage = errors.New("analyzer: requested attributes are incompatible with the selected language(s)")
)

// Validate aplica as mesmas regras que RequestBuilder.Build. O gateway usa isso
// para rejeitar corpos inválidos antes de consumir uma vaga no tier.
func (r Request) Validate() error {
	var err error
	if len(r.RequestedAttributes) == 0 {
		err = multierr.Append(err, ErrNoAttributes)
	}
	if len(r.Comment.Text) > MaxCommentBytes {
		err = multierr.Append(err, ErrCommentTooLong)
	}
	if r.Context != nil {
		for i, e := range r.Context.Entries {
			if len(e.Text) > MaxContextEntryBytes {
				err = multierr.Append(err, fmt.Errorf("entry %d: %w", i, ErrContextTooLong))
			}
		}
	}
	for attr := range r.RequestedAttributes {
		for _, lang := range r.Languages {
			if attr.Compatibility(lang) == Incompatible {
				err = multierr.Append(err, fmt.Errorf("%s/%s: %w", attr, lang, ErrIncompatibleLanguage))
			}
		}
	}
	return err
}

// RequestBuilder monta um Request com validação no Build.
//
//	req, err := domain.NewRequestBuilder("what kind of idiot name is foo?").
//	    Attribute(domain.Toxicity, domain.AttributeOptions{}).
//	    Languages(domain.English).
//	    Build()
type RequestBuilder struct {
	req Request
}

func NewRequestBuilder(text string) *RequestBuilder {
	return &RequestBuilder{req: Request{Comment: Comment{Text: text}}}
}

func (b *RequestBuilder) TextType(t TextType) *RequestBuilder {
	b.req.Comment.Type = t
	return b
}

func (b *RequestBuilder) Attribute(a Attribute, opts AttributeOptions) *RequestBuilder {
	if b.req.RequestedAttributes == nil {
		b.req.RequestedAttributes = make(map[Attribute]AttributeOptions)
	}
	b.req.RequestedAttributes[a] = opts
	return b
}

// AllAttributes substitui os atributos pedidos por todos os conhecidos, com opções padrão.
func (b *RequestBuilder) AllAttributes() *RequestBuilder {
	b.req.RequestedAttributes = make(map[Attribute]AttributeOptions, len(attributeClasses))
	for _, a := range AllAttributes() {
		b.req.RequestedAttributes[a] = AttributeOptions{}
	}
	return b
}

func (b *RequestBuilder) Languages(langs ...LanguageCode) *RequestBuilder {
	b.req.Languages = append([]LanguageCode(nil), langs...)
	return b
}

func (b *RequestBuilder) Context(entries ...Entry) *RequestBuilder {
	b.req.Context = &Context{Entries: append([]Entry(nil), entries...)}
	return b
}

func (b *RequestBuilder) SpanAnnotations(v bool) *RequestBuilder {
	b.req.SpanAnnotations = &v
	return b
}

func (b *RequestBuilder) DoNotStore(v bool) *RequestBuilder {
	b.req.DoNotStore = &v
	return b
}

func (b *RequestBuilder) ClientToken(v string) *RequestBuilder {
	b.req.ClientToken = v
	return b
}

func (b *RequestBuilder) SessionID(v string) *RequestBuilder {
	b.req.SessionID = v
	return b
}

func (b *RequestBuilder) CommunityID(v string) *RequestBuilder {
	b.req.CommunityID = v
	return b
}

func (b *RequestBuilder) Build() (Request, error) {
	if err := b.req.Validate(); err != nil {
		return Request{}, err
	}
	return b.req, nil
}
