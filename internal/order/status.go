package order

type Status string

const (
	StatusPending        Status = "Pending"
	StatusOutForShipping Status = "Out For Shipping"
	StatusCompleted      Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOutForShipping, StatusCompleted:
		return true
	}
	return false
}

type Timeslot string

const (
	TimeslotMorning   Timeslot = "8 AM - 12 PM"
	TimeslotAfternoon Timeslot = "12 PM - 4 PM"
	TimeslotEvening   Timeslot = "4 PM - 8 PM"
)

var Timeslots = []Timeslot{TimeslotMorning, TimeslotAfternoon, TimeslotEvening}

func (t Timeslot) Valid() bool {
	for _, s := range Timeslots {
		if t == s {
			return true
		}
	}
	return false
}

type PaymentType string

const (
	PaymentCredit PaymentType = "credit"
	PaymentDebit  PaymentType = "debit"
)
