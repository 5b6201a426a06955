package types

import "strings"

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_Dirichlet
	BC_Neumann
	BC_Design
)

var BCNameMap = map[string]BCFLAG{
	"dirichlet": BC_Dirichlet,
	"fixed":     BC_Dirichlet,
	"neumann":   BC_Neumann,
	"neuman":    BC_Neumann,
	"load":      BC_Neumann,
	"design":    BC_Design,
}

func (bf BCFLAG) String() string {
	switch bf {
	case BC_Dirichlet:
		return "Dirichlet"
	case BC_Neumann:
		return "Neumann"
	case BC_Design:
		return "Design"
	default:
		return "None"
	}
}

// NewBCFLAG parses a case insensitive BC kind name, unknown names map to BC_None
func NewBCFLAG(name string) BCFLAG {
	if bf, ok := BCNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return bf
	}
	return BC_None
}
