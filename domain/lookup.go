package domain

// =============================================================================
// LOOKUP TABLES - id-keyed views over a snapshot
// =============================================================================

// Tables indexes a snapshot's collections by id so per-entry enrichment is
// O(1) per foreign key. Build once per computation; the underlying snapshot
// is never mutated.
type Tables struct {
	Employees map[EmployeeID]*Employee
	Jobs      map[JobID]*Job
	HourTypes map[HourTypeID]*HourType
	Provinces map[ProvinceID]*Province
	Items     map[RentalItemID]*RentalItem

	invoiced map[JobID]map[Date]struct{}
}

func NewTables(s *Snapshot) *Tables {
	t := &Tables{
		Employees: make(map[EmployeeID]*Employee, len(s.Employees)),
		Jobs:      make(map[JobID]*Job, len(s.Jobs)),
		HourTypes: make(map[HourTypeID]*HourType, len(s.HourTypes)),
		Provinces: make(map[ProvinceID]*Province, len(s.Provinces)),
		Items:     make(map[RentalItemID]*RentalItem, len(s.RentalItems)),
		invoiced:  make(map[JobID]map[Date]struct{}, len(s.Jobs)),
	}
	for i := range s.Employees {
		t.Employees[s.Employees[i].ID] = &s.Employees[i]
	}
	for i := range s.Jobs {
		j := &s.Jobs[i]
		t.Jobs[j.ID] = j
		if len(j.InvoicedDates) > 0 {
			set := make(map[Date]struct{}, len(j.InvoicedDates))
			for _, d := range j.InvoicedDates {
				set[d] = struct{}{}
			}
			t.invoiced[j.ID] = set
		}
	}
	for i := range s.HourTypes {
		t.HourTypes[s.HourTypes[i].ID] = &s.HourTypes[i]
	}
	for i := range s.Provinces {
		t.Provinces[s.Provinces[i].ID] = &s.Provinces[i]
	}
	for i := range s.RentalItems {
		t.Items[s.RentalItems[i].ID] = &s.RentalItems[i]
	}
	return t
}

// IsInvoiced reports whether the job has billed work on the given date.
// Unknown jobs are never invoiced.
func (t *Tables) IsInvoiced(jobID JobID, d Date) bool {
	set, ok := t.invoiced[jobID]
	if !ok {
		return false
	}
	_, ok = set[d]
	return ok
}
