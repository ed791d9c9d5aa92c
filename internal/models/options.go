package models

// Allowed values for the select fields of residents and meal detail groups.
var (
	DietaryRestrictions = []string{"diabetes", "lactose-free", "gluten-free", "vegetarian", "vegan", "no-pork"}

	Preparations = []string{"sliced", "spread"}

	BreakfastBread     = []string{"roll", "whole-grain-roll", "grey-bread", "whole-grain-bread", "white-bread", "crispbread", "porridge"}
	BreakfastSpreads   = []string{"butter", "margarine", "jam", "diabetic-jam", "honey", "cheese", "quark", "sausage"}
	BreakfastBeverages = []string{"coffee", "tea", "hot-milk", "cold-milk"}
	BreakfastAdditions = []string{"sugar", "sweetener", "creamer"}

	PortionSizes        = []string{"small", "large", "vegetarian"}
	SpecialPreparations = []string{"pureed-food", "pureed-meat", "sliced-meat", "mashed-potatoes"}
	LunchRestrictions   = []string{"no-fish", "fingerfood", "only-sweet"}

	DinnerBread     = []string{"grey-bread", "whole-grain-bread", "white-bread", "crispbread"}
	DinnerSpreads   = []string{"butter", "margarine"}
	DinnerBeverages = []string{"tea", "cocoa", "hot-milk", "cold-milk"}
	DinnerAdditions = []string{"sugar", "sweetener"}
)
