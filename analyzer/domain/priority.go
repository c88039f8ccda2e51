package domain

import (
	"fmt"
	"strings"
)

// Priority é uma propriedade da submissão, não do payload.
// Valores menores são mais urgentes.
type Priority int

const (
	High Priority = iota
	Normal
	Low
)

// Priorities lista as prioridades na ordem em que o dispatcher drena os tiers.
func Priorities() []Priority { return []Priority{High, Normal, Low} }

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (p Priority) Valid() bool { return p >= High && p <= Low }

// ParsePriority aceita "high", "normal" ou "low" (sem diferenciar maiúsculas).
// String vazia vira Normal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High, nil
	case "", "normal":
		return Normal, nil
	case "low":
		return Low, nil
	}
	return Normal, fmt.Errorf("analyzer: unknown priority %q", s)
}
