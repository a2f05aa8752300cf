package models

// Employee is the per-employee document. Records are provisioned outside
// the task board; only Todo and Done are ever written by it.
type Employee struct {
	EmpID     int64  `json:"empId" bson:"empId"`
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Todo      []Task `json:"todo" bson:"todo"`
	Done      []Task `json:"done" bson:"done"`
}

// Lists projects the employee's task lists.
func (e *Employee) Lists() TaskLists {
	return TaskLists{Todo: e.Todo, Done: e.Done}.Normalize()
}

// FullName returns the display name used after sign-in.
func (e *Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
