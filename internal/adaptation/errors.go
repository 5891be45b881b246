package adaptation

import "errors"

var (
	// ErrNilClass is returned when the CUT class could not be loaded.
	ErrNilClass = errors.New("class under test is nil")
	// ErrInterfaceClass is returned for interface CUTs.
	ErrInterfaceClass = errors.New("class under test is an interface")
	// ErrAbstractClass is returned when methods are resolved on an abstract CUT.
	ErrAbstractClass = errors.New("class under test is abstract")
	// ErrUnresolvable is returned when no desired method resolves at all.
	ErrUnresolvable = errors.New("no desired method could be resolved")
	// ErrNoSuchMember is returned by adapters that have no candidate for a slot.
	ErrNoSuchMember = errors.New("adapter has no member for the requested signature")
	// ErrArgumentCount is returned when a candidate is invoked with the wrong
	// number of desired arguments.
	ErrArgumentCount = errors.New("wrong number of desired arguments")
)
