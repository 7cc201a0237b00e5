package inducer

import "go.uber.org/zap"

type settings struct {
	prefix string
	offset int
	logger *zap.Logger
	params Params
}

// Option configures an inducer at construction.
type Option func(*settings)

// WithIDPrefix sets the dose ID prefix. The default is the first letter of
// the inducer name, upper-cased.
func WithIDPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = prefix }
}

// WithIDOffset shifts dose ID numbering so the first dose is offset+1.
func WithIDOffset(offset int) Option {
	return func(s *settings) { s.offset = offset }
}

// WithLogger sets the logger used for recipe warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithParams replaces the pipetting parameters. Abstract inducers ignore it.
func WithParams(p Params) Option {
	return func(s *settings) { s.params = p }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: zap.NewNop(), params: DefaultParams()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
