package domain

// =============================================================================
// SNAPSHOT - The complete dataset at a point in time
// =============================================================================

// Snapshot holds every raw collection. It is the unit of persistence: the
// live dataset is one snapshot, each retained backup embeds one, and restore
// replaces the live snapshot atomically with a staged copy.
type Snapshot struct {
	Employees     []Employee    `json:"employees"`
	Jobs          []Job         `json:"jobs"`
	TimeEntries   []TimeEntry   `json:"timeEntries"`
	RentalItems   []RentalItem  `json:"rentalItems"`
	RentalEntries []RentalEntry `json:"rentalEntries"`
	HourTypes     []HourType    `json:"hourTypes"`
	Provinces     []Province    `json:"provinces"`
}

// RecordCounts is the per-collection tally stored on each backup.
type RecordCounts struct {
	Employees     int `json:"employees"`
	Jobs          int `json:"jobs"`
	TimeEntries   int `json:"timeEntries"`
	RentalItems   int `json:"rentalItems"`
	RentalEntries int `json:"rentalEntries"`
	HourTypes     int `json:"hourTypes"`
	Provinces     int `json:"provinces"`
}

// Total sums every collection's count.
func (c RecordCounts) Total() int {
	return c.Employees + c.Jobs + c.TimeEntries + c.RentalItems +
		c.RentalEntries + c.HourTypes + c.Provinces
}

func (s *Snapshot) Counts() RecordCounts {
	return RecordCounts{
		Employees:     len(s.Employees),
		Jobs:          len(s.Jobs),
		TimeEntries:   len(s.TimeEntries),
		RentalItems:   len(s.RentalItems),
		RentalEntries: len(s.RentalEntries),
		HourTypes:     len(s.HourTypes),
		Provinces:     len(s.Provinces),
	}
}

func (s *Snapshot) TotalRecords() int {
	c := s.Counts()
	return c.Employees + c.Jobs + c.TimeEntries + c.RentalItems +
		c.RentalEntries + c.HourTypes + c.Provinces
}

// Clone returns a deep copy. Stores hand out clones so a reader can never
// observe a snapshot mid-replacement, and restore stages a clone before
// committing it.
func (s *Snapshot) Clone() Snapshot {
	out := Snapshot{
		Employees:     append([]Employee(nil), s.Employees...),
		Jobs:          make([]Job, len(s.Jobs)),
		TimeEntries:   append([]TimeEntry(nil), s.TimeEntries...),
		RentalItems:   append([]RentalItem(nil), s.RentalItems...),
		RentalEntries: make([]RentalEntry, len(s.RentalEntries)),
		HourTypes:     append([]HourType(nil), s.HourTypes...),
		Provinces:     append([]Province(nil), s.Provinces...),
	}
	for i, j := range s.Jobs {
		j.InvoicedDates = append([]Date(nil), j.InvoicedDates...)
		out.Jobs[i] = j
	}
	for i, r := range s.RentalEntries {
		if r.DSPRate != nil {
			rate := *r.DSPRate
			r.DSPRate = &rate
		}
		out.RentalEntries[i] = r
	}
	return out
}

// Empty returns the default dataset used by reset: every collection present
// and zero-length.
func Empty() Snapshot {
	return Snapshot{
		Employees:     []Employee{},
		Jobs:          []Job{},
		TimeEntries:   []TimeEntry{},
		RentalItems:   []RentalItem{},
		RentalEntries: []RentalEntry{},
		HourTypes:     []HourType{},
		Provinces:     []Province{},
	}
}
