package engine

type Color struct {
	Hex  string
	Name string
}

// Palette is the set of team colours offered by the client. The server does
// not reject colours outside it.
var Palette = []Color{
	{Hex: "#FF6B6B", Name: "Red Team"},
	{Hex: "#4ECDC4", Name: "Cyan Team"},
	{Hex: "#45B7D1", Name: "Blue Team"},
	{Hex: "#FFA07A", Name: "Orange Team"},
	{Hex: "#98D8C8", Name: "Mint Team"},
	{Hex: "#F7DC6F", Name: "Yellow Team"},
	{Hex: "#BB8FCE", Name: "Purple Team"},
	{Hex: "#85C1E2", Name: "Sky Team"},
	{Hex: "#F8B500", Name: "Gold Team"},
	{Hex: "#FF1493", Name: "Pink Team"},
	{Hex: "#00CED1", Name: "Teal Team"},
	{Hex: "#FF69B4", Name: "Rose Team"},
	{Hex: "#32CD32", Name: "Green Team"},
	{Hex: "#FF8C00", Name: "Dark Orange Team"},
	{Hex: "#9370DB", Name: "Lavender Team"},
}

// TeamName looks up the display name of a colour, falling back to the colour itself.
func TeamName(color string) string {
	for _, c := range Palette {
		if c.Hex == color {
			return c.Name
		}
	}
	return color
}

var defaultTasks = [CellCount]string{
	"Take a selfie with someone new", "Compliment someone", "Share a fun fact", "Do 10 jumping jacks",
	"Find someone born in your month", "Learn someone's favourite food", "High-five 3 people", "Tell a joke",
	"Find someone who speaks 2+ languages", "Sing a song (any length)", "Dance for 10 seconds", "Draw a quick sketch",
	"Swap contact details with someone", "Ask someone about their hobby", "Share your favourite movie", "Find someone wearing your colour",
	"Play rock paper scissors", "Walk across the room in a silly way", "Name 5 animals in 10 seconds", "Strike a pose for a photo",
	"Count down from 20", "Find someone with your shoe size", "Share an embarrassing story", "Imitate an animal sound", "Fist-bump someone",
}

// DefaultTasks returns a fresh copy of the default deck.
func DefaultTasks() []string {
	tasks := make([]string, CellCount)
	copy(tasks, defaultTasks[:])
	return tasks
}
