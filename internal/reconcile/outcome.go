package reconcile

import "strings"

// Aliases de notificación.
const (
	AliasSuccess            = "success"
	AliasInvalidRC          = "error-invalid-rc"
	AliasDeletedRC          = "error-deleted-rc"
	AliasInvalidConfig      = "error-invalid-config"
	AliasMemProofGeneration = "error-mem-proof-generation"
	AliasGeneric            = "error-generic"
)

// DetailTimeout es el detalle de un outcome cuando el dispositivo nunca respondió.
const DetailTimeout = "timeout"

// Outcome es lo que se le entrega al notificador.
// Detail es el target alcanzado (éxito) o el texto de error upstream (falla).
type Outcome struct {
	Recipient string
	Success   bool
	Detail    string
}

// Alias elige la plantilla de notificación para el outcome.
func (o Outcome) Alias() string {
	if o.Success {
		return AliasSuccess
	}
	return Classify(o.Detail)
}

type classifyRule struct {
	needles []string
	alias   string
}

// El orden importa: gana la primera regla con algún needle contenido.
var classifyRules = []classifyRule{
	{[]string{"invalid registration code"}, AliasInvalidRC},
	{[]string{"registration code deleted"}, AliasDeletedRC},
	{[]string{"invalid config version used"}, AliasInvalidConfig},
	{[]string{"mem-proof", "mem proof", "membrane proof", "membrane-proof"}, AliasMemProofGeneration},
}

// Classify mapea texto de error upstream a un alias. Es total: sin match
// devuelve AliasGeneric. La comparación ignora mayúsculas.
func Classify(detail string) string {
	d := strings.ToLower(detail)
	for _, r := range classifyRules {
		for _, n := range r.needles {
			if strings.Contains(d, n) {
				return r.alias
			}
		}
	}
	return AliasGeneric
}
