package actuation

// Command is the intent parsed from one request. Never stored.
type Command uint8

const (
	Unrecognized Command = iota
	TurnOn
	TurnOff
)

func (c Command) String() string {
	switch c {
	case TurnOn:
		return "on"
	case TurnOff:
		return "off"
	default:
		return "unrecognized"
	}
}

const (
	ActionKey = "action"
	valueOn   = "on"
	valueOff  = "off"
)

// Param is one request parameter, in the order it appeared.
type Param struct {
	Name  string
	Value string
}

// ParseCommand scans params in order. The first "action" parameter decides,
// whatever its value; later ones are never looked at.
func ParseCommand(params []Param) Command {
	for _, p := range params {
		if p.Name != ActionKey {
			continue
		}
		switch p.Value {
		case valueOn:
			return TurnOn
		case valueOff:
			return TurnOff
		default:
			return Unrecognized
		}
	}
	return Unrecognized
}

// Zip pairs CGI-style parallel name/value arrays. Extra entries in the
// longer slice are dropped.
func Zip(names, values []string) []Param {
	n := len(names)
	if len(values) < n {
		n = len(values)
	}
	out := make([]Param, n)
	for i := 0; i < n; i++ {
		out[i] = Param{Name: names[i], Value: values[i]}
	}
	return out
}
