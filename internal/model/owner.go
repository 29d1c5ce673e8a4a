package model

import "strings"

// Owner is the root of the graph: it owns pets, which own tasks.
type Owner struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Pets []*Pet `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

func NewOwner(name string) *Owner {
	return &Owner{Name: name}
}

func (o *Owner) AddPet(pet *Pet) {
	o.Pets = append(o.Pets, pet)
}

// RemovePet drops the first pet with the given name, tasks included.
func (o *Owner) RemovePet(name string) bool {
	for i, p := range o.Pets {
		if strings.EqualFold(p.Name, name) {
			o.Pets = append(o.Pets[:i], o.Pets[i+1:]...)
			return true
		}
	}
	return false
}

// Pet finds a pet by name, case-insensitively.
func (o *Owner) Pet(name string) *Pet {
	name = strings.TrimSpace(name)
	for _, p := range o.Pets {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// AllTasks flattens every pet's tasks in pet order, then entry order.
func (o *Owner) AllTasks() []*Task {
	var tasks []*Task
	for _, p := range o.Pets {
		tasks = append(tasks, p.Tasks...)
	}
	return tasks
}

// PetOf returns the first pet whose task list contains task, or nil.
func (o *Owner) PetOf(task *Task) *Pet {
	for _, p := range o.Pets {
		if p.HasTask(task) {
			return p
		}
	}
	return nil
}

// FindTask looks a task up by its full ID.
func (o *Owner) FindTask(id string) (*Task, *Pet) {
	for _, p := range o.Pets {
		for _, t := range p.Tasks {
			if t.ID == id {
				return t, p
			}
		}
	}
	return nil, nil
}

func (o *Owner) Clone() *Owner {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Pets = make([]*Pet, len(o.Pets))
	for i, p := range o.Pets {
		cp.Pets[i] = p.Clone()
	}
	return &cp
}
