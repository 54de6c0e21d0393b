package domain

// Person is a learner. Speak is the language they know and Learn the one
// they study. Cards keeps insertion order.
type Person struct {
	ID    int64
	Name  string
	Speak Lang
	Learn Lang
	Cards []*Card
}

// NewPerson creates a person with an empty deck.
func NewPerson(name string, speak, learn Lang) *Person {
	return &Person{
		Name:  name,
		Speak: speak,
		Learn: learn,
		Cards: []*Card{},
	}
}

// AddCard appends a card to the person's deck.
func (p *Person) AddCard(card *Card) {
	p.Cards = append(p.Cards, card)
}
