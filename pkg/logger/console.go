package logger

// ConsolePrinter routes a script's console.log/warn/error output to a Logger.
// Its method set matches the goja_nodejs console Printer.
type ConsolePrinter struct {
	l Logger
}

func NewConsolePrinter(l Logger) *ConsolePrinter {
	return &ConsolePrinter{l: l}
}

func (p *ConsolePrinter) Log(s string) {
	p.l.Info("%s", s)
}

func (p *ConsolePrinter) Warn(s string) {
	p.l.Warning("%s", s)
}

func (p *ConsolePrinter) Error(s string) {
	p.l.Error("%s", s)
}
