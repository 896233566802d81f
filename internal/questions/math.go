package questions

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

// MathModel declares how many problems of each operation a set contains.
type MathModel struct {
	Name string
	Add  int
	Sub  int
	Mul  int
	Div  int
}

func (m MathModel) Total() int { return m.Add + m.Sub + m.Mul + m.Div }

// MathModels are the preset 15-problem set shapes parents pick from.
var MathModels = map[string]MathModel{
	"balanced":     {Name: "Balanced", Add: 4, Sub: 4, Mul: 4, Div: 3},
	"add-sub":      {Name: "Addition and subtraction", Add: 7, Sub: 7, Mul: 1, Div: 0},
	"multiply":     {Name: "Multiplication focus", Add: 3, Sub: 2, Mul: 10, Div: 0},
	"divide":       {Name: "Division focus", Add: 4, Sub: 3, Mul: 0, Div: 8},
	"light-mix":    {Name: "Light mix", Add: 5, Sub: 5, Mul: 3, Div: 2},
}

// MathGenerator produces arithmetic problems with small operands. Subtraction
// never goes negative and division always divides evenly.
type MathGenerator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewMathGenerator(seed int64) *MathGenerator {
	return &MathGenerator{rand: rand.New(rand.NewSource(seed))}
}

func (g *MathGenerator) intn(min, max int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Intn(max-min+1) + min
}

// Problem generates one problem of the given operation.
func (g *MathGenerator) Problem(op string) (models.Item, error) {
	var prompt string
	var answer int
	switch op {
	case "add":
		a, b := g.intn(1, 10), g.intn(1, 10)
		prompt, answer = fmt.Sprintf("%d + %d", a, b), a+b
	case "sub":
		a := g.intn(1, 10)
		b := g.intn(1, a)
		prompt, answer = fmt.Sprintf("%d - %d", a, b), a-b
	case "mul":
		a, b := g.intn(1, 10), g.intn(1, 10)
		prompt, answer = fmt.Sprintf("%d × %d", a, b), a*b
	case "div":
		b := g.intn(1, 10)
		answer = g.intn(1, 10)
		prompt = fmt.Sprintf("%d ÷ %d", b*answer, b)
	default:
		return models.Item{}, core.Validationf("unknown math operation %q", op)
	}
	return models.Item{
		Category:    CategoryMath,
		Prompt:      prompt,
		Correct:     answer,
		Explanation: fmt.Sprintf("The correct answer is %d.", answer),
	}, nil
}

// Set generates the full problem list for a model.
func (g *MathGenerator) Set(model MathModel) ([]models.Item, error) {
	items := make([]models.Item, 0, model.Total())
	for _, spec := range []struct {
		op    string
		count int
	}{
		{"add", model.Add},
		{"sub", model.Sub},
		{"mul", model.Mul},
		{"div", model.Div},
	} {
		for i := 0; i < spec.count; i++ {
			item, err := g.Problem(spec.op)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}
