package store

// Root record keys in the durable store. The names are carried over from the
// browser build of the app so existing exports stay importable.
const (
	KeyUsers       = "expenseManagerUsers"
	KeyCurrentUser = "currentUser"
	KeyTheme       = "expenseManagerTheme"
	KeyAssetCaches = "assetCacheNames"
)

// User is an account record. Expenses and categories are embedded by value;
// the whole record is serialized as one unit on every write.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"passwordHash"`
	Avatar       string     `json:"avatar,omitempty"` // data URL, empty when unset
	MonthlyLimit int64      `json:"monthlyLimit"`
	Expenses     []Expense  `json:"expenses"`
	Categories   []Category `json:"categories"`
}

// Expense is a single spending entry. IDs are unique within the owning user
// and assigned as max(existing)+1.
type Expense struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"` // VND, no fractional units
	Date     string `json:"date"`   // YYYY-MM-DD
}

// Category groups expenses. The ID is derived from the name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Theme is the single process-wide visual theme record. It persists
// independently of user identity and survives logout.
type Theme struct {
	PrimaryColor       string  `json:"primaryColor"`
	SecondaryColor     string  `json:"secondaryColor"`
	DangerColor        string  `json:"dangerColor"`
	WarningColor       string  `json:"warningColor"`
	DarkColor          string  `json:"darkColor"`
	LightColor         string  `json:"lightColor"`
	CardOpacity        float64 `json:"cardOpacity"`
	BackgroundImage    string  `json:"backgroundImage"` // "none" or a data URL
	BackgroundBlur     int     `json:"backgroundBlur"`  // pixels
	BackgroundOverlay  string  `json:"backgroundOverlay"`
	SelectedColorIndex int     `json:"selectedColorIndex"`
}

// IsZero reports whether the theme record is empty (missing or corrupt in
// the store).
func (t Theme) IsZero() bool {
	return t == Theme{}
}

// DefaultTheme returns the theme applied when no record exists yet.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:       "#3498db",
		SecondaryColor:     "#2ecc71",
		DangerColor:        "#e74c3c",
		WarningColor:       "#f39c12",
		DarkColor:          "#2c3e50",
		LightColor:         "#ecf0f1",
		CardOpacity:        0.95,
		BackgroundImage:    "none",
		BackgroundBlur:     0,
		BackgroundOverlay:  "rgba(255, 255, 255, 0.1)",
		SelectedColorIndex: 0,
	}
}

// PaletteColor is one selectable entry of the fixed color palette.
type PaletteColor struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Danger    string `json:"danger"`
}

// ColorPalette is the fixed palette the theme's SelectedColorIndex points
// into.
var ColorPalette = []PaletteColor{
	{Name: "Xanh dương", Color: "#3498db", Primary: "#3498db", Secondary: "#2ecc71", Danger: "#e74c3c"},
	{Name: "Xanh lá", Color: "#2ecc71", Primary: "#2ecc71", Secondary: "#3498db", Danger: "#e74c3c"},
	{Name: "Đỏ", Color: "#e74c3c", Primary: "#e74c3c", Secondary: "#3498db", Danger: "#2ecc71"},
	{Name: "Cam", Color: "#f39c12", Primary: "#f39c12", Secondary: "#3498db", Danger: "#e74c3c"},
	{Name: "Tím", Color: "#9b59b6", Primary: "#9b59b6", Secondary: "#3498db", Danger: "#e74c3c"},
	{Name: "Hồng", Color: "#e84393", Primary: "#e84393", Secondary: "#3498db", Danger: "#e74c3c"},
	{Name: "Xám", Color: "#7f8c8d", Primary: "#7f8c8d", Secondary: "#3498db", Danger: "#e74c3c"},
	{Name: "Đen", Color: "#2c3e50", Primary: "#2c3e50", Secondary: "#3498db", Danger: "#e74c3c"},
}

// DefaultCategories is the full starter set seeded into an account whose
// category list is empty at load time.
func DefaultCategories() []Category {
	return []Category{
		{ID: "an_uong", Name: "Ăn uống", Icon: "fa-utensils"},
		{ID: "mua_sam", Name: "Mua sắm", Icon: "fa-shopping-cart"},
		{ID: "di_chuyen", Name: "Di chuyển", Icon: "fa-car"},
		{ID: "hoa_don", Name: "Hóa đơn", Icon: "fa-file-invoice"},
		{ID: "giai_tri", Name: "Giải trí", Icon: "fa-gamepad"},
		{ID: "suc_khoe", Name: "Sức khỏe", Icon: "fa-heartbeat"},
		{ID: "hoc_tap", Name: "Học tập", Icon: "fa-graduation-cap"},
		{ID: "khac", Name: "Khác", Icon: "fa-tag"},
	}
}

// RegistrationCategories is the smaller set attached to a freshly registered
// account; the rest of the defaults are filled in on first load.
func RegistrationCategories() []Category {
	return []Category{
		{ID: "an_uong", Name: "Ăn uống", Icon: "fa-utensils"},
		{ID: "mua_sam", Name: "Mua sắm", Icon: "fa-shopping-cart"},
	}
}

// AvailableIcons is the fixed set of symbolic icon tags a category may use.
var AvailableIcons = []string{
	"fa-utensils", "fa-shopping-cart", "fa-car", "fa-home", "fa-wifi",
	"fa-mobile-alt", "fa-gamepad", "fa-film", "fa-music", "fa-book",
	"fa-graduation-cap", "fa-heartbeat", "fa-pills", "fa-dumbbell", "fa-t-shirt",
	"fa-gift", "fa-coffee", "fa-beer", "fa-pizza-slice", "fa-hamburger",
	"fa-plane", "fa-train", "fa-bus", "fa-taxi", "fa-bicycle",
	"fa-child", "fa-baby", "fa-dog", "fa-cat", "fa-paw",
	"fa-tools", "fa-couch", "fa-lightbulb", "fa-money-bill-wave", "fa-credit-card",
	"fa-wallet", "fa-piggy-bank", "fa-chart-line", "fa-briefcase", "fa-laptop",
	"fa-camera", "fa-basketball-ball", "fa-futbol", "fa-swimming-pool", "fa-hiking",
	"fa-phone", "fa-envelope", "fa-tag", "fa-star", "fa-heart",
	"fa-flag", "fa-bell", "fa-calendar", "fa-clock", "fa-map-marker",
	"fa-globe", "fa-user",
}
