// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers, sem puxar fmt só para isso.

package gatekeeper

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
