package eventer

type options struct {
	logger Logger
	strict bool
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger used to report ignored registrations and contract
// violations. Registries log nothing by default.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrictContracts makes contract violations panic with a *ContractError
// instead of being logged.
func WithStrictContracts() Option {
	return func(o *options) { o.strict = true }
}
