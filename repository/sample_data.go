package repository

// The fixed seed set the fallback generator paginates over. Shapes mirror
// what the feed endpoint would return for a brand-new account, so the app is
// never empty on first launch without a network.

type sampleUser struct {
	ID         int
	Username   string
	FullName   string
	Avatar     string
	Bio        string
	Followers  int
	Following  int
	Posts      int
	IsVerified bool
}

type samplePost struct {
	ID        int
	UserID    int
	Content   string
	ImageURL  string
	Timestamp string
	Likes     int
	Comments  int
	IsLiked   bool
}

var sampleUsers = []sampleUser{
	{
		ID:       1,
		Username: "you",
		FullName: "Your Name",
		Avatar:   "👤",
		Bio:      "Welcome to PulseFeed! Share your thoughts with the world.",
	},
	{
		ID:         2,
		Username:   "pulsefeed",
		FullName:   "PulseFeed Team",
		Avatar:     "⚡",
		Bio:        "Official PulseFeed account.",
		Followers:  12400,
		Following:  3,
		Posts:      42,
		IsVerified: true,
	},
	{
		ID:        3,
		Username:  "maya_codes",
		FullName:  "Maya Srinivasan",
		Avatar:    "🦜",
		Bio:       "Building things. Opinions my own.",
		Followers: 890,
		Following: 412,
		Posts:     167,
	},
}

var samplePosts = []samplePost{
	{
		ID:        1,
		UserID:    1,
		Content:   "Welcome to PulseFeed! This is your first post. Share your thoughts and connect with friends! 🚀",
		Timestamp: "now",
	},
	{
		ID:        2,
		UserID:    2,
		Content:   "Tip: pull down on the feed to refresh. Your timeline updates in real time when you're online.",
		Timestamp: "2h",
		Likes:     312,
		Comments:  18,
	},
	{
		ID:        3,
		UserID:    3,
		Content:   "Shipped a side project this weekend. Nothing beats that feeling.",
		Timestamp: "5h",
		Likes:     57,
		Comments:  9,
		IsLiked:   true,
	},
	{
		ID:        4,
		UserID:    2,
		Content:   "We just crossed 10k users. Thank you all! ⚡",
		ImageURL:  "https://cdn.pulsefeed.app/demo/10k.png",
		Timestamp: "1d",
		Likes:     1043,
		Comments:  86,
	},
	{
		ID:        5,
		UserID:    3,
		Content:   "Hot take: offline-first is the only first.",
		Timestamp: "2d",
		Likes:     208,
		Comments:  44,
	},
}
