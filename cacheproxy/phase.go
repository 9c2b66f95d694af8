package cacheproxy

import "fmt"

// Phase is the lifecycle position of one cache generation.
type Phase int32

const (
	PhaseUninstalled Phase = iota
	PhaseInstalling
	PhaseActivating
	PhaseActive
	// PhaseRedundant marks a generation replaced by a newer one.
	PhaseRedundant
)

func (p Phase) String() string {
	switch p {
	case PhaseUninstalled:
		return "uninstalled"
	case PhaseInstalling:
		return "installing"
	case PhaseActivating:
		return "activating"
	case PhaseActive:
		return "active"
	case PhaseRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}
