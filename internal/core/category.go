package core

// Icon is the display symbol associated with a category.
type Icon string

const (
	IconUtensils      Icon = "utensils"
	IconBus           Icon = "bus"
	IconShoppingBag   Icon = "shopping-bag"
	IconHome          Icon = "home"
	IconGamepad       Icon = "gamepad"
	IconHeartPulse    Icon = "heart-pulse"
	IconGraduationCap Icon = "graduation-cap"
	IconMore          Icon = "more-horizontal"
	IconWallet        Icon = "wallet"
	IconDollarSign    Icon = "dollar-sign"
	IconTrendingUp    Icon = "trending-up"
)

// CategoryOther is the catch-all category present in both sets.
const CategoryOther = "其他"

// FallbackIcon is used for categories outside the suggested sets.
const FallbackIcon = IconMore

var (
	incomeCategories  = []string{"工资", "奖金", "理财", "红包", CategoryOther}
	expenseCategories = []string{"餐饮", "交通", "购物", "居住", "娱乐", "医疗", "教育", CategoryOther}

	categoryIcons = map[string]Icon{
		"餐饮":          IconUtensils,
		"交通":          IconBus,
		"购物":          IconShoppingBag,
		"居住":          IconHome,
		"娱乐":          IconGamepad,
		"医疗":          IconHeartPulse,
		"教育":          IconGraduationCap,
		CategoryOther: IconMore,
		"工资":          IconWallet,
		"奖金":          IconDollarSign,
		"理财":          IconTrendingUp,
		"红包":          IconHeartPulse,
	}
)

// Category pairs a suggested category with its icon.
type Category struct {
	Name string `json:"name"`
	Icon Icon   `json:"icon"`
}

// SuggestedCategories returns the suggested set for t in display order.
// The set is a suggestion only; bills may carry any non-blank category.
func SuggestedCategories(t TransactionType) []string {
	var src []string
	switch t {
	case Income:
		src = incomeCategories
	case Expense:
		src = expenseCategories
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// IconFor returns the icon for a category, or FallbackIcon when unknown.
func IconFor(category string) Icon {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return FallbackIcon
}

// CategoriesWithIcons is SuggestedCategories paired with IconFor.
func CategoriesWithIcons(t TransactionType) []Category {
	names := SuggestedCategories(t)
	out := make([]Category, 0, len(names))
	for _, n := range names {
		out = append(out, Category{Name: n, Icon: IconFor(n)})
	}
	return out
}
