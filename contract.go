package eventer

// Contract declares whether an event carries a payload.
type Contract int

const (
	// ContractAny accepts both Notify and Emit. It is the contract of every
	// event that was never declared.
	ContractAny Contract = iota
	// ContractNoData events are dispatched with Notify.
	ContractNoData
	// ContractData events are dispatched with Emit.
	ContractData
)

func (c Contract) String() string {
	switch c {
	case ContractNoData:
		return "no-data"
	case ContractData:
		return "data"
	default:
		return "any"
	}
}

// Declare records the payload contract of event. Declaring does not register
// anything, an event with a contract and no listeners is still unknown to
// dispatch.
func (r *Registry[K, V]) Declare(event K, contract Contract) *Registry[K, V] {
	r.lock.Lock()
	defer r.lock.Unlock()

	if contract == ContractAny {
		delete(r.contracts, event)
		return r
	}

	r.contracts[event] = contract
	return r
}

// check reports a dispatch that does not match the declared contract of event.
// In strict mode it panics with a *ContractError before any listener runs.
func (r *Registry[K, V]) check(event K, withData bool) {
	r.lock.Lock()
	contract := r.contracts[event]
	r.lock.Unlock()

	var err error
	switch {
	case contract == ContractData && !withData:
		err = newContractError(event, contract, ErrPayloadRequired)
	case contract == ContractNoData && withData:
		err = newContractError(event, contract, ErrUnexpectedPayload)
	default:
		return
	}

	if r.strict {
		panic(err)
	}

	r.logger.Warn(err)
}
