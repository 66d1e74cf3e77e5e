// Command pulsefeed is a terminal client for the PulseFeed API. It exercises
// the full offline story: every read falls back to the local cache, and with
// no backend at all it still logs in and renders a synthetic feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/app_setting"
	"github.com/pulsefeed/pulsefeed-go/preferences"
	"github.com/pulsefeed/pulsefeed-go/repository"
	"github.com/pulsefeed/pulsefeed-go/store"
	"github.com/pulsefeed/pulsefeed-go/utils"
	"github.com/pulsefeed/pulsefeed-go/utils/dotenv"
	. "github.com/pulsefeed/pulsefeed-go/utils/log"
)

var configPath = flag.String("config", "", "path to a YAML config file")

type app struct {
	prefs *preferences.UserPreferences
	store *store.Store
	auth  *repository.AuthRepository
	posts *repository.PostRepository
	users *repository.UserRepository
}

func newApp(setting app_setting.PulseFeedAppSetting) (*app, error) {
	prefs, err := preferences.Open(setting.PREFERENCES_DB_PATH)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(setting.CACHE_DB_PATH)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(setting.API_BASE_URL,
		api.WithTimeout(setting.HTTPTimeout()),
		api.WithTokenSource(func() string {
			value, err := prefs.AccessToken(context.Background())
			if err != nil || !value.OK {
				return ""
			}
			return value.Str
		}),
	)

	var fallback *repository.FallbackRepository
	if !setting.DISABLE_OFFLINE_FALLBACK {
		fallback = repository.NewFallbackRepository()
	}

	return &app{
		prefs: prefs,
		store: st,
		auth:  repository.NewAuthRepository(client, prefs, st, fallback),
		posts: repository.NewPostRepository(client, st, fallback),
		users: repository.NewUserRepository(client, st),
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.prefs.Close()
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: pulsefeed [-config FILE] COMMAND [args]

commands:
  login USERNAME PASSWORD    authenticate and store the session
  otp PHONE                  request a verification code
  verify PHONE CODE          verify the code and log in
  feed                       print the home feed
  post CONTENT               publish a post
  like POST_ID               like a post
  profile                    print the logged-in profile
  logout                     clear the session and cache`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	InitLogger("pulsefeed")

	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.WithError(err).Debug("no .env file loaded")
	}

	setting := app_setting.DefaultAppSetting()
	if *configPath != "" {
		parsed, err := app_setting.ParsePulseFeedAppSetting(*configPath)
		if err != nil {
			Log.Fatalf("read config: %v", err)
		}
		setting = parsed
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	a, err := newApp(setting)
	if err != nil {
		Log.Fatalf("initialize: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, repository.ErrorMessage(err))
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		if len(rest) != 2 {
			usage()
		}
		resp, err := a.auth.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as @%s\n", resp.User.Username)
		return nil

	case "otp":
		if len(rest) != 1 {
			usage()
		}
		if err := a.auth.SendOTP(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Println("verification code sent")
		return nil

	case "verify":
		if len(rest) != 2 {
			usage()
		}
		resp, err := a.auth.VerifyOTP(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as @%s\n", resp.User.Username)
		return nil

	case "feed":
		feed, err := a.posts.GetFeed(ctx, 20, 0)
		if err != nil {
			return err
		}
		for _, entry := range feed.Posts {
			username := "unknown"
			if entry.User != nil {
				username = entry.User.Username
			}
			fmt.Printf("#%d @%s (%s)\n  %s\n  %d likes, %d comments\n",
				entry.Post.ID, username, utils.RelativeTime(entry.Post.CreatedAt),
				entry.Post.Content, entry.Post.LikesCount, entry.Post.CommentsCount)
		}
		return nil

	case "post":
		if len(rest) != 1 {
			usage()
		}
		created, err := a.posts.CreatePost(ctx, rest[0], nil, "")
		if err != nil {
			return err
		}
		fmt.Printf("posted #%d\n", created.Post.ID)
		return nil

	case "like":
		if len(rest) != 1 {
			usage()
		}
		var postID int
		if _, err := fmt.Sscanf(rest[0], "%d", &postID); err != nil {
			usage()
		}
		if err := a.posts.LikePost(ctx, postID); err != nil {
			return err
		}
		fmt.Println("liked")
		return nil

	case "profile":
		user, err := a.users.GetProfile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("@%s (%s)\n%s\n%d followers, %d following, %d posts\n",
			user.Username, user.FullName, user.Bio,
			user.FollowersCount, user.FollowingCount, user.PostsCount)
		return nil

	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	default:
		usage()
		return nil
	}
}
