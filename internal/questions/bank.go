package questions

import (
	"context"
	"math/rand"
	"sync"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

type bankEntry struct {
	prompt      string
	options     [4]string
	correct     int
	explanation string
}

// StaticBank serves questions from the embedded per-category lists. Safe for
// concurrent use.
type StaticBank struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewStaticBank returns a bank with its own random source.
func NewStaticBank(seed int64) *StaticBank {
	return &StaticBank{rand: rand.New(rand.NewSource(seed))}
}

// Questions returns exactly count random items from the category, or fails
// when the category is unknown or the bank is too small.
func (b *StaticBank) Questions(_ context.Context, category string, count int) ([]models.Item, error) {
	if count <= 0 {
		return nil, core.Validationf("question count must be positive, got %d", count)
	}
	entries, ok := bank[category]
	if !ok {
		return nil, core.NotFoundf("unknown question category %q", category)
	}
	if count > len(entries) {
		return nil, core.CollaboratorUnavailablef("category %q has only %d questions, %d requested", category, len(entries), count)
	}
	b.mu.Lock()
	perm := b.rand.Perm(len(entries))
	b.mu.Unlock()

	items := make([]models.Item, 0, count)
	for _, idx := range perm[:count] {
		e := entries[idx]
		items = append(items, models.Item{
			Category:    category,
			Prompt:      e.prompt,
			Options:     e.options[:],
			Correct:     e.correct,
			Explanation: e.explanation,
		})
	}
	return items, nil
}

var bank = map[string][]bankEntry{
	CategoryFinancial: {
		{"What is the best thing to do with money you want to use later?", [4]string{"Spend it right away", "Save it", "Hide it under a rug", "Give it away"}, 1, "Saving keeps money available for when you really need it."},
		{"What is an allowance?", [4]string{"A kind of toy", "Money received regularly from a parent", "A bank fee", "A school subject"}, 1, "An allowance is regular money a parent gives a child."},
		{"If a toy costs 10 and you have 6, how much do you still need?", [4]string{"2", "3", "4", "16"}, 2, "10 minus 6 equals 4."},
		{"What does a bank do with the money people deposit?", [4]string{"Burns it", "Keeps it safe", "Loses it", "Paints it"}, 1, "Banks keep deposited money safe and track who owns it."},
		{"Which of these is a need, not a want?", [4]string{"Video game", "Candy", "Food", "Stickers"}, 2, "Food is something everyone needs to live."},
		{"What is a budget?", [4]string{"A plan for spending and saving", "A type of coin", "A kind of store", "A prize"}, 0, "A budget plans how money is spent and saved."},
		{"Saving a little money every week is called what?", [4]string{"A habit", "A debt", "A fine", "A tax"}, 0, "Regular saving is a money habit that adds up."},
		{"If you earn money for doing chores, that money is your what?", [4]string{"Debt", "Income", "Expense", "Receipt"}, 1, "Money you earn is income."},
		{"What happens if you spend more than you have?", [4]string{"Nothing", "You owe money", "You get more money", "The store pays you"}, 1, "Spending more than you have means owing the difference."},
		{"Which is the safest place to keep your savings?", [4]string{"A shoe", "A bank account", "The playground", "A friend's pocket"}, 1, "A bank account keeps savings safe and recorded."},
		{"What is interest on savings?", [4]string{"A penalty", "Extra money the bank pays you", "A kind of tax", "A toy"}, 1, "Banks pay a little extra on money kept with them."},
		{"Before buying something expensive you should first do what?", [4]string{"Compare prices", "Buy it fast", "Throw away money", "Close your eyes"}, 0, "Comparing prices helps you spend wisely."},
	},
	CategorySpelling: {
		{"Which word is spelled correctly?", [4]string{"becase", "because", "becuase", "becouse"}, 1, "The correct spelling is 'because'."},
		{"Which word is spelled correctly?", [4]string{"freind", "frend", "friend", "firend"}, 2, "The correct spelling is 'friend'."},
		{"Which word is spelled correctly?", [4]string{"tomorow", "tommorow", "tommorrow", "tomorrow"}, 3, "The correct spelling is 'tomorrow'."},
		{"Which word is spelled correctly?", [4]string{"beautiful", "beutiful", "beautifull", "butiful"}, 0, "The correct spelling is 'beautiful'."},
		{"Which word is spelled correctly?", [4]string{"recieve", "receive", "receeve", "riceive"}, 1, "The rule is i before e, except after c."},
		{"Which word is spelled correctly?", [4]string{"librery", "libary", "library", "libraray"}, 2, "The correct spelling is 'library'."},
		{"Which word is spelled correctly?", [4]string{"diferent", "different", "differant", "diffrent"}, 1, "The correct spelling is 'different'."},
		{"Which word is spelled correctly?", [4]string{"surprise", "suprise", "surprize", "seprise"}, 0, "The correct spelling is 'surprise'."},
		{"Which word is spelled correctly?", [4]string{"allways", "alwais", "always", "alweys"}, 2, "The correct spelling is 'always'."},
		{"Which word is spelled correctly?", [4]string{"wich", "which", "whitch", "wiche"}, 1, "The correct spelling is 'which'."},
		{"Which word is spelled correctly?", [4]string{"bicycle", "bycicle", "bicicle", "bysycle"}, 0, "The correct spelling is 'bicycle'."},
		{"Which word is spelled correctly?", [4]string{"scholl", "schol", "shool", "school"}, 3, "The correct spelling is 'school'."},
	},
	CategoryScience: {
		{"What do plants need to make their own food?", [4]string{"Sunlight", "Plastic", "Sugar cubes", "Wind only"}, 0, "Plants use sunlight in photosynthesis."},
		{"How many legs does an insect have?", [4]string{"4", "6", "8", "10"}, 1, "Insects have six legs."},
		{"What is water made of?", [4]string{"Hydrogen and oxygen", "Salt and sand", "Air and dust", "Iron and gold"}, 0, "A water molecule is two hydrogen atoms and one oxygen atom."},
		{"Which planet is closest to the Sun?", [4]string{"Earth", "Mars", "Mercury", "Jupiter"}, 2, "Mercury orbits closest to the Sun."},
		{"What do we call animals that eat only plants?", [4]string{"Carnivores", "Herbivores", "Omnivores", "Insectivores"}, 1, "Herbivores eat only plants."},
		{"Which state of matter is ice?", [4]string{"Liquid", "Gas", "Solid", "Plasma"}, 2, "Ice is water in its solid state."},
		{"What organ pumps blood through your body?", [4]string{"Lungs", "Brain", "Stomach", "Heart"}, 3, "The heart pumps blood through the circulatory system."},
		{"Which of these is a source of renewable energy?", [4]string{"Coal", "Oil", "Sunlight", "Natural gas"}, 2, "Sunlight never runs out, unlike fossil fuels."},
		{"What gas do humans breathe in to live?", [4]string{"Carbon dioxide", "Oxygen", "Helium", "Nitrogen only"}, 1, "Our bodies need oxygen from the air."},
		{"Caterpillars turn into what?", [4]string{"Spiders", "Butterflies", "Beetles", "Worms"}, 1, "A caterpillar metamorphoses into a butterfly."},
		{"What causes day and night?", [4]string{"Earth spinning", "Clouds moving", "The Moon glowing", "Stars blinking"}, 0, "Earth rotating on its axis causes day and night."},
		{"Which sense do your ears give you?", [4]string{"Sight", "Smell", "Hearing", "Taste"}, 2, "Ears are the organ of hearing."},
	},
}
