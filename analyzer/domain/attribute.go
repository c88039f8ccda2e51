package domain

// Attribute é o nome (no wire) de um atributo que a API sabe pontuar.
//
// Produção (maior acurácia, todas as línguas suportadas): Toxicity, SevereToxicity,
// IdentityAttack, Insult, Profanity, Threat.
//
// Experimentais: as variantes *_EXPERIMENTAL, SexuallyExplicit e Flirtation.
//
// New York Times: treinados só com comentários do NYT, apenas em inglês.
type Attribute string

const (
	Toxicity       Attribute = "TOXICITY"
	SevereToxicity Attribute = "SEVERE_TOXICITY"
	IdentityAttack Attribute = "IDENTITY_ATTACK"
	Insult         Attribute = "INSULT"
	Profanity      Attribute = "PROFANITY"
	Threat         Attribute = "THREAT"

	ToxicityExperimental       Attribute = "TOXICITY_EXPERIMENTAL"
	SevereToxicityExperimental Attribute = "SEVERE_TOXICITY_EXPERIMENTAL"
	IdentityAttackExperimental Attribute = "IDENTITY_ATTACK_EXPERIMENTAL"
	InsultExperimental         Attribute = "INSULT_EXPERIMENTAL"
	ProfanityExperimental      Attribute = "PROFANITY_EXPERIMENTAL"
	ThreatExperimental         Attribute = "THREAT_EXPERIMENTAL"
	SexuallyExplicit           Attribute = "SEXUALLY_EXPLICIT"
	Flirtation                 Attribute = "FLIRTATION"

	AttackOnAuthor    Attribute = "ATTACK_ON_AUTHOR"
	AttackOnCommenter Attribute = "ATTACK_ON_COMMENTER"
	Incoherent        Attribute = "INCOHERENT"
	Inflammatory      Attribute = "INFLAMMATORY"
	LikelyToReject    Attribute = "LIKELY_TO_REJECT"
	Obscene           Attribute = "OBSCENE"
	Spam              Attribute = "SPAM"
	Unsubstantial     Attribute = "UNSUBSTANTIAL"
)

type attributeClass int

const (
	classProduction attributeClass = iota
	classExperimental
	classExperimentalEnglish
	classNYT
)

var attributeClasses = map[Attribute]attributeClass{
	Toxicity:       classProduction,
	SevereToxicity: classProduction,
	IdentityAttack: classProduction,
	Insult:         classProduction,
	Profanity:      classProduction,
	Threat:         classProduction,

	ToxicityExperimental:       classExperimental,
	SevereToxicityExperimental: classExperimental,
	IdentityAttackExperimental: classExperimental,
	InsultExperimental:         classExperimental,
	ProfanityExperimental:      classExperimental,
	ThreatExperimental:         classExperimental,
	SexuallyExplicit:           classExperimentalEnglish,
	Flirtation:                 classExperimentalEnglish,

	AttackOnAuthor:    classNYT,
	AttackOnCommenter: classNYT,
	Incoherent:        classNYT,
	Inflammatory:      classNYT,
	LikelyToReject:    classNYT,
	Obscene:           classNYT,
	Spam:              classNYT,
	Unsubstantial:     classNYT,
}

// AllAttributes retorna todos os atributos conhecidos, na ordem de declaração.
func AllAttributes() []Attribute {
	return []Attribute{
		Toxicity, SevereToxicity, IdentityAttack, Insult, Profanity, Threat,
		ToxicityExperimental, SevereToxicityExperimental, IdentityAttackExperimental,
		InsultExperimental, ProfanityExperimental, ThreatExperimental,
		SexuallyExplicit, Flirtation,
		AttackOnAuthor, AttackOnCommenter, Incoherent, Inflammatory,
		LikelyToReject, Obscene, Spam, Unsubstantial,
	}
}

func (a Attribute) Known() bool {
	_, ok := attributeClasses[a]
	return ok
}

// Compatibility diz como um atributo se comporta em uma língua.
type Compatibility int

const (
	Incompatible Compatibility = iota
	Experimental
	Supported
)

func (c Compatibility) String() string {
	switch c {
	case Supported:
		return "supported"
	case Experimental:
		return "experimental"
	default:
		return "incompatible"
	}
}

// Compatibility consulta a tabela atributo x língua.
//
// Línguas desconhecidas e atributos desconhecidos retornam Experimental:
// a decisão final fica com a API remota.
func (a Attribute) Compatibility(lang LanguageCode) Compatibility {
	class, ok := attributeClasses[a]
	if !ok || !lang.Known() {
		return Experimental
	}
	switch class {
	case classProduction:
		return Supported
	case classExperimental:
		return Experimental
	case classExperimentalEnglish:
		if lang == English {
			return Experimental
		}
		return Incompatible
	case classNYT:
		if lang == English {
			return Supported
		}
		return Incompatible
	}
	return Incompatible
}

// LanguageCode é um código ISO 639-1 aceito pela API. Códigos fora da lista
// são preservados como vieram (a API pode devolver línguas detectadas novas).
type LanguageCode string

const (
	Arabic     LanguageCode = "ar"
	Chinese    LanguageCode = "zh"
	Czech      LanguageCode = "cs"
	Dutch      LanguageCode = "nl"
	English    LanguageCode = "en"
	French     LanguageCode = "fr"
	German     LanguageCode = "de"
	Hindi      LanguageCode = "hi"
	Hinglish   LanguageCode = "hi-Latn"
	Indonesian LanguageCode = "id"
	Italian    LanguageCode = "it"
	Japanese   LanguageCode = "ja"
	Korean     LanguageCode = "ko"
	Polish     LanguageCode = "pl"
	Portuguese LanguageCode = "pt"
	Russian    LanguageCode = "ru"
	Spanish    LanguageCode = "es"
	Swedish    LanguageCode = "sv"
)

var knownLanguages = map[LanguageCode]struct{}{
	Arabic: {}, Chinese: {}, Czech: {}, Dutch: {}, English: {}, French: {},
	German: {}, Hindi: {}, Hinglish: {}, Indonesian: {}, Italian: {}, Japanese: {},
	Korean: {}, Polish: {}, Portuguese: {}, Russian: {}, Spanish: {}, Swedish: {},
}

func (l LanguageCode) Known() bool {
	_, ok := knownLanguages[l]
	return ok
}
