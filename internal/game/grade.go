package game

import "github.com/tatianab/transit-ace/internal/models"

// Grader turns final stats into a GameReport. The zero value grades in
// English.
type Grader struct {
	Language models.Language
}

// Infraction count from which the grade is always F.
const arrestThreshold = 3

// Compute grades a finished game. It is deterministic and never fails;
// non-positive initial values contribute 0 to the score.
func (g Grader) Compute(budgetRemaining float64, moraleRemaining, legalInfractions, initialMorale int, initialBudget float64) models.GameReport {
	var budgetPct, moralePct float64
	if initialBudget > 0 {
		budgetPct = clamp(budgetRemaining/initialBudget*100, -100, 100)
	}
	if initialMorale > 0 {
		moralePct = clamp(float64(moraleRemaining)/float64(initialMorale)*100, 0, 100)
	}
	penalty := float64(legalInfractions * 10)
	score := clamp(budgetPct*0.5+moralePct*0.5-penalty, 0, 100)

	grade := letterFor(score)
	switch {
	case legalInfractions >= arrestThreshold:
		grade = "F"
	case budgetPct <= 0 || moralePct <= 0:
		grade = "F"
	case legalInfractions == 2:
		grade = worse("D", grade)
	case legalInfractions == 1:
		grade = worse("C", grade)
	}

	return models.GameReport{
		Grade:   grade,
		Summary: g.summary(grade, legalInfractions >= arrestThreshold),
	}
}

// ComputeStats grades stats against the story that seeded them.
func (g Grader) ComputeStats(stats models.UserStats, story models.StoryLine) models.GameReport {
	return g.Compute(stats.Budget, stats.Morale, stats.LegalInfractions, story.InitialMorale, story.InitialBudget)
}

func letterFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	case score >= 20:
		return "E"
	default:
		return "F"
	}
}

// worse returns the alphabetically later letter.
func worse(a, b string) string {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

const arrestedKey = "F!"

var summaries = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		"A":         "Transit Ace! You crossed Paris like a true Parisian: on budget, in good spirits and on the right side of the law.",
		"B":         "Seasoned rider. A few detours, but you handled the metro with confidence.",
		"C":         "You got there in the end. Paris tested you and you mostly held up.",
		"D":         "A bumpy ride. Your wallet and your nerves both took a beating.",
		"E":         "Barely surviving. Maybe consider walking next time.",
		"F":         "Lost in the métro. Paris got the better of you this time.",
		arrestedKey: "The RATP inspectors know you by name now. Too many infractions: game over.",
	},
	models.LanguageFrench: {
		"A":         "As du transport ! Vous avez traversé Paris comme un vrai Parisien : dans le budget, de bonne humeur et en règle.",
		"B":         "Voyageur aguerri. Quelques détours, mais vous maîtrisez le métro.",
		"C":         "Vous êtes arrivé à bon port. Paris vous a mis à l'épreuve et vous avez plutôt tenu.",
		"D":         "Un trajet mouvementé. Votre portefeuille et vos nerfs en ont pris un coup.",
		"E":         "Tout juste survivant. La prochaine fois, pensez peut-être à marcher.",
		"F":         "Perdu dans le métro. Paris a eu raison de vous cette fois.",
		arrestedKey: "Les contrôleurs de la RATP vous connaissent par votre nom. Trop d'infractions : partie terminée.",
	},
}

func (g Grader) summary(grade string, arrested bool) string {
	table, ok := summaries[g.Language]
	if !ok {
		table = summaries[models.LanguageEnglish]
	}
	if grade == "F" && arrested {
		return table[arrestedKey]
	}
	return table[grade]
}
