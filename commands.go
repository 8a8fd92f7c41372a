/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/khawawish/api"
	"github.com/Seednode/khawawish/credentials"
	"github.com/Seednode/khawawish/protocol"
)

const requestTimeout = 15 * time.Second

// apiCall runs fn against an api client carrying the saved token when
// needAuth is set.
func apiCall(cmd *cobra.Command, cfg *Config, needAuth bool, fn func(ctx context.Context, c *api.Client, store *credentials.Store) error) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := cfg.credentialStore()
	if err != nil {
		return err
	}

	client, err := newAPI(cfg, store, logger)
	if err != nil {
		return err
	}

	if needAuth {
		creds, err := loadSession(store)
		if err != nil {
			return err
		}
		client.SetToken(creds.Token)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	err = fn(ctx, client, store)
	if errors.Is(err, api.ErrUnauthorized) && needAuth {
		return fmt.Errorf("%w (saved credentials cleared, log in again)", err)
	}

	return err
}

// readPassword takes the flag value, or the first line of stdin.
func readPassword(cmd *cobra.Command, cfg *Config) (string, error) {
	if cfg.password != "" {
		return cfg.password, nil
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password required")
	}

	return password, nil
}

func saveAuth(store *credentials.Store, auth *api.AuthResponse) error {
	return store.Save(credentials.Credentials{
		Token: auth.AccessToken,
		User:  auth.User,
		Saved: time.Now(),
	})
}

func newLoginCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the access token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, cfg)
			if err != nil {
				return err
			}

			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, store *credentials.Store) error {
				auth, err := c.Login(ctx, api.LoginRequest{Username: args[0], Password: password})
				if err != nil {
					return err
				}

				if err := saveAuth(store, auth); err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", auth.User.Username)

				return err
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.StringVar(&cfg.password, "password", "", "account password; read from stdin if unset (env: KHAWAWISH_PASSWORD)")

	bindFlags(v, fs)

	return cmd
}

func newRegisterCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and save the access token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.email == "" {
				return errors.New("--email is required")
			}

			password, err := readPassword(cmd, cfg)
			if err != nil {
				return err
			}

			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, store *credentials.Store) error {
				auth, err := c.Register(ctx, api.RegisterRequest{
					Username:    args[0],
					Email:       cfg.email,
					Password:    password,
					DisplayName: cfg.displayName,
				})
				if err != nil {
					return err
				}

				if err := saveAuth(store, auth); err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", auth.User.Username)

				return err
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.StringVar(&cfg.displayName, "display-name", "", "name shown to other players; defaults to the username (env: KHAWAWISH_DISPLAY_NAME)")
	fs.StringVar(&cfg.email, "email", "", "account email (env: KHAWAWISH_EMAIL)")
	fs.StringVar(&cfg.password, "password", "", "account password; read from stdin if unset (env: KHAWAWISH_PASSWORD)")

	bindFlags(v, fs)

	return cmd
}

func newLogoutCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved access token.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cfg.credentialStore()
			if err != nil {
				return err
			}

			return store.Clear()
		},
	}
}

func printUser(w io.Writer, u *protocol.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	_, _ = fmt.Fprintf(tw, "Display name\t%s\n", u.DisplayName)
	if u.Email != "" {
		_, _ = fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	}
	if u.Bio != "" {
		_, _ = fmt.Fprintf(tw, "Bio\t%s\n", u.Bio)
	}
	_, _ = fmt.Fprintf(tw, "Games\t%d played, %d won (%.1f%%)\n", u.GamesPlayed, u.GamesWon, u.WinRate*100)
	_, _ = fmt.Fprintf(tw, "Score\t%d total, %.2f average\n", u.TotalScore, u.AverageScore)
	_, _ = fmt.Fprintf(tw, "Streak\t%d current, %d best\n", u.CurrentStreak, u.BestStreak)
	if u.InGame {
		_, _ = fmt.Fprintln(tw, "Status\tin game")
	}

	return tw.Flush()
}

func newWhoamiCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(cmd, cfg, true, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				u, err := c.Me(ctx)
				if err != nil {
					return err
				}

				return printUser(cmd.OutOrStdout(), u)
			})
		},
	}
}

func newUserCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "user <username>",
		Short: "Show a public profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				u, err := c.User(ctx, args[0])
				if err != nil {
					return err
				}

				return printUser(cmd.OutOrStdout(), u)
			})
		},
	}
}

func newLobbiesCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "lobbies",
		Short: "List public lobbies waiting for a second player.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				lobbies, err := c.PublicLobbies(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tOWNER\tIMAGES\tPASSWORD")
				for _, l := range lobbies {
					owner := ""
					if l.Owner != nil {
						owner = l.Owner.DisplayName
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", l.LobbyID, l.LobbyName, owner, l.MaxImages, l.HasPassword)
				}

				return tw.Flush()
			})
		},
	}
}

func newLeaderboardCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show player rankings.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateListing(); err != nil {
				return err
			}

			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				board, err := c.Leaderboard(ctx, api.RankQuery{
					SortBy:   cfg.sortBy,
					Order:    cfg.order,
					Page:     cfg.page,
					PageSize: cfg.pageSize,
					MinGames: cfg.minGames,
				})
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "#\tPLAYER\tWON\tPLAYED\tSCORE\tBEST STREAK\tWIN %")
				for _, e := range board.Entries {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%.1f\n",
						e.Rank, e.DisplayName, e.GamesWon, e.GamesPlayed, e.TotalScore, e.BestStreak, e.WinRate*100)
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d players)\n", board.Page, board.TotalPages, board.TotalCount)

				return err
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.IntVar(&cfg.minGames, "min-games", 0, "only rank players with at least this many games (env: KHAWAWISH_MIN_GAMES)")
	fs.StringVar(&cfg.order, "order", "", "asc or desc (env: KHAWAWISH_ORDER)")
	fs.IntVar(&cfg.page, "page", 0, "page to show (env: KHAWAWISH_PAGE)")
	fs.IntVar(&cfg.pageSize, "page-size", 0, "entries per page (env: KHAWAWISH_PAGE_SIZE)")
	fs.StringVar(&cfg.sortBy, "sort-by", api.SortGamesWon, "games_won, total_score, best_streak, average_score or games_played (env: KHAWAWISH_SORT_BY)")

	bindFlags(v, fs)

	return cmd
}

func newSearchCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find players by name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateListing(); err != nil {
				return err
			}

			return apiCall(cmd, cfg, false, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				hits, err := c.SearchUsers(ctx, args[0], cfg.limit)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "USERNAME\tNAME\tWON\tSCORE\tIN GAME")
				for _, h := range hits {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\n", h.Username, h.DisplayName, h.GamesWon, h.TotalScore, h.InGame)
				}

				return tw.Flush()
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.IntVar(&cfg.limit, "limit", 0, "maximum results (env: KHAWAWISH_LIMIT)")

	bindFlags(v, fs)

	return cmd
}

func newUploadCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image, optionally setting it as avatar or banner.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.avatar && cfg.banner {
				return errors.New("--avatar and --banner are mutually exclusive")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return apiCall(cmd, cfg, true, func(ctx context.Context, c *api.Client, _ *credentials.Store) error {
				url, err := c.Upload(ctx, filepath.Base(args[0]), f)
				if err != nil {
					return err
				}

				if cfg.avatar || cfg.banner {
					me, err := c.Me(ctx)
					if err != nil {
						return err
					}

					edit := api.ProfileEditFrom(*me)
					if cfg.avatar {
						edit.AvatarURL = url
					} else {
						edit.BannerURL = url
					}

					if _, err := c.EditProfile(ctx, edit); err != nil {
						return err
					}
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), url)

				return err
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.BoolVar(&cfg.avatar, "avatar", false, "use the upload as your avatar (env: KHAWAWISH_AVATAR)")
	fs.BoolVar(&cfg.banner, "banner", false, "use the upload as your banner (env: KHAWAWISH_BANNER)")

	bindFlags(v, fs)

	return cmd
}

func newEditCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change profile fields; unset flags keep their current value.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()

			return apiCall(cmd, cfg, true, func(ctx context.Context, c *api.Client, store *credentials.Store) error {
				me, err := c.Me(ctx)
				if err != nil {
					return err
				}

				edit := api.ProfileEditFrom(*me)
				if fs.Changed("display-name") {
					edit.DisplayName = cfg.displayName
				}
				if fs.Changed("email") {
					edit.Email = cfg.email
				}
				if fs.Changed("bio") {
					edit.Bio = cfg.bio
				}

				u, err := c.EditProfile(ctx, edit)
				if err != nil {
					return err
				}

				if creds, err := store.Load(); err == nil {
					creds.User = *u
					_ = store.Save(creds)
				}

				return printUser(cmd.OutOrStdout(), u)
			})
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.StringVar(&cfg.bio, "bio", "", "profile text (env: KHAWAWISH_BIO)")
	fs.StringVar(&cfg.displayName, "display-name", "", "name shown to other players (env: KHAWAWISH_DISPLAY_NAME)")
	fs.StringVar(&cfg.email, "email", "", "account email (env: KHAWAWISH_EMAIL)")

	bindFlags(v, fs)

	return cmd
}
