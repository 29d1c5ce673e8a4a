package model

// Pet owns an ordered list of tasks. Slice order is the order tasks were entered.
type Pet struct {
	ID       uint `gorm:"primaryKey"`
	OwnerID  uint `gorm:"index"`
	Position int
	Name     string `gorm:"not null"`
	Breed    string
	Age      int
	Weight   float64
	Tasks    []*Task `gorm:"foreignKey:PetID;constraint:OnDelete:CASCADE"`
}

func NewPet(name, breed string, age int, weight float64) *Pet {
	return &Pet{Name: name, Breed: breed, Age: age, Weight: weight}
}

func (p *Pet) AddTask(task *Task) {
	p.Tasks = append(p.Tasks, task)
}

// RemoveTask drops the task with the given ID and reports whether it was there.
func (p *Pet) RemoveTask(id string) bool {
	for i, t := range p.Tasks {
		if t.ID == id {
			p.Tasks = append(p.Tasks[:i], p.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// HasTask compares by identity, so two tasks with equal fields stay distinct.
func (p *Pet) HasTask(task *Task) bool {
	if task == nil {
		return false
	}
	for _, t := range p.Tasks {
		if t == task || (t.ID != "" && t.ID == task.ID) {
			return true
		}
	}
	return false
}

func (p *Pet) NumTasks() int { return len(p.Tasks) }

func (p *Pet) Clone() *Pet {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Tasks = make([]*Task, len(p.Tasks))
	for i, t := range p.Tasks {
		cp.Tasks[i] = t.Clone()
	}
	return &cp
}
