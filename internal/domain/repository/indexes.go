package repository

const (
	Tours    = "tours"
	Users    = "users"
	Reviews  = "reviews"
	Bookings = "bookings"
)

var (
	TourIndexes = []Index{
		{Fields: []string{"name"}, Unique: true},
		{Fields: []string{"price", "ratingsAverage"}},
		{Fields: []string{"slug"}},
		{Fields: []string{"startLocation"}, Geo: true},
	}
	UserIndexes = []Index{
		{Fields: []string{"email"}, Unique: true},
	}
	// one review per user per tour
	ReviewIndexes = []Index{
		{Fields: []string{"tour", "user"}, Unique: true},
	}
	BookingIndexes = []Index{
		{Fields: []string{"tour"}},
		{Fields: []string{"user"}},
	}
)
