package orders

// Status is the order lifecycle state. Orders start UNPAID and move
// forward only; CANCELLED is reachable from UNPAID or PAID and both
// CANCELLED and COMPLETED are terminal.
type Status string

const (
	StatusUnpaid    Status = "UNPAID"
	StatusPaid      Status = "PAID"
	StatusPacked    Status = "PACKED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusUnpaid:    {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusPacked: true, StatusShipped: true, StatusCompleted: true, StatusCancelled: true},
	StatusPacked:    {StatusShipped: true, StatusCompleted: true},
	StatusShipped:   {StatusCompleted: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// cancellableFrom is the WHERE-clause source set of the conditional
// update that gates stock restoration.
var cancellableFrom = []string{string(StatusUnpaid), string(StatusPaid)}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusUnpaid, StatusPaid, StatusPacked, StatusShipped, StatusCompleted, StatusCancelled:
		return Status(raw), true
	}
	return "", false
}
