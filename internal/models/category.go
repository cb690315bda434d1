package models

// Category labels a transaction. The catalog is a fixed in-code directory;
// transactions reference it by id.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // income or expense
	Icon string `json:"icon,omitempty"`
}

var Categories = []Category{
	{ID: 1, Name: "Salary", Type: TransactionTypeIncome, Icon: "briefcase"},
	{ID: 2, Name: "Freelance", Type: TransactionTypeIncome, Icon: "laptop"},
	{ID: 3, Name: "Investments", Type: TransactionTypeIncome, Icon: "trending-up"},
	{ID: 4, Name: "Rental Income", Type: TransactionTypeIncome, Icon: "home"},
	{ID: 5, Name: "Other Income", Type: TransactionTypeIncome, Icon: "plus-circle"},
	{ID: 10, Name: "Housing", Type: TransactionTypeExpense, Icon: "home"},
	{ID: 11, Name: "Groceries", Type: TransactionTypeExpense, Icon: "shopping-cart"},
	{ID: 12, Name: "Dining", Type: TransactionTypeExpense, Icon: "coffee"},
	{ID: 13, Name: "Transport", Type: TransactionTypeExpense, Icon: "truck"},
	{ID: 14, Name: "Utilities", Type: TransactionTypeExpense, Icon: "zap"},
	{ID: 15, Name: "Healthcare", Type: TransactionTypeExpense, Icon: "heart"},
	{ID: 16, Name: "Entertainment", Type: TransactionTypeExpense, Icon: "film"},
	{ID: 17, Name: "Shopping", Type: TransactionTypeExpense, Icon: "shopping-bag"},
	{ID: 18, Name: "Travel", Type: TransactionTypeExpense, Icon: "map"},
	{ID: 19, Name: "Education", Type: TransactionTypeExpense, Icon: "book"},
	{ID: 20, Name: "Insurance", Type: TransactionTypeExpense, Icon: "shield"},
	{ID: 21, Name: "Subscriptions", Type: TransactionTypeExpense, Icon: "repeat"},
	{ID: 22, Name: "Other", Type: TransactionTypeExpense, Icon: "more-horizontal"},
}

var categoryNames = func() map[int]string {
	m := make(map[int]string, len(Categories))
	for _, c := range Categories {
		m[c.ID] = c.Name
	}
	return m
}()

// CategoryName resolves a catalog id; unknown or missing ids come back as
// "Uncategorized".
func CategoryName(id int) string {
	if name, ok := categoryNames[id]; ok {
		return name
	}
	return "Uncategorized"
}
