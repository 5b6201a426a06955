package utils

const (
	// NODETOL is the coordinate tolerance of node selections
	NODETOL = 1.e-12
)
