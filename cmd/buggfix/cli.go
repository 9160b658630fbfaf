package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"buggfix/internal/domain"
	"buggfix/internal/playground/ai"
	"buggfix/internal/playground/workspace"
)

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "buggfix",
		Usage:   "Code playground with cloud sync and AI-assisted fixing",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:4000",
				Usage:   "Backend base URL",
				EnvVars: []string{"BUGGFIX_SERVER"},
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Value:   defaultStateDir(),
				Usage:   "Directory for local state",
				EnvVars: []string{"BUGGFIX_STATE_DIR"},
			},
		},
		Commands: []*cli.Command{
			registerCmd(),
			loginCmd(),
			logoutCmd(),
			whoamiCmd(),
			lsCmd(),
			newCmd(),
			folderCmd(),
			fileCmd(),
			saveCmd(),
			catCmd(),
			runCmd(),
			aifixCmd(),
		},
	}
}

// withApp wires the client stack, loads the workspace tree, runs fn, and
// prints whatever sync message the operation left behind.
func withApp(c *cli.Context, fn func(a *app) error) error {
	a, err := newApp(c.String("server"), c.String("state-dir"))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ws.Load(c.Context); err != nil {
		return err
	}
	printSyncMessage(a.ws)

	err = fn(a)
	printSyncMessage(a.ws)
	return err
}

func printSyncMessage(ws *workspace.Store) {
	if msg := ws.Message(); msg != nil {
		fmt.Printf("[%s] %s\n", msg.Kind, msg.Text)
		ws.ClearMessage()
	}
}

// resolveFolder accepts a folder id or title.
func resolveFolder(ws *workspace.Store, ref string) (domain.Folder, error) {
	for _, folder := range ws.Folders() {
		if folder.ID == ref || folder.Title == ref {
			return folder, nil
		}
	}
	return domain.Folder{}, fmt.Errorf("no workspace matching %q", ref)
}

// resolveFile accepts a file id or title inside a resolved folder.
func resolveFile(folder domain.Folder, ref string) (domain.File, error) {
	for _, file := range folder.Files {
		if file.ID == ref || file.Title == ref {
			return file, nil
		}
	}
	return domain.File{}, fmt.Errorf("no file matching %q in %q", ref, folder.Title)
}

func registerCmd() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true, Usage: "Display name"},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				login, err := a.client.Register(c.Context, domain.RegisterRequest{
					Email:       c.String("email"),
					DisplayName: c.String("name"),
					Password:    c.String("password"),
				})
				if err != nil {
					return err
				}
				sess := &session{local: a.local}
				if err := sess.save(login.AccessToken, login.User.DisplayName, login.User.Email); err != nil {
					return err
				}
				// Adopt the fresh session: push any guest work to the cloud.
				if err := a.ws.Load(c.Context); err != nil {
					return err
				}
				fmt.Printf("Welcome, %s!\n", login.User.DisplayName)
				return nil
			})
		},
	}
}

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				login, err := a.client.Login(c.Context, domain.LoginRequest{
					Email:    c.String("email"),
					Password: c.String("password"),
				})
				if err != nil {
					return err
				}
				sess := &session{local: a.local}
				if err := sess.save(login.AccessToken, login.User.DisplayName, login.User.Email); err != nil {
					return err
				}
				// Reload so the remote tree replaces any guest data.
				return a.ws.Load(c.Context)
			})
		},
	}
}

func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and clear local data",
		Action: func(c *cli.Context) error {
			a, err := newApp(c.String("server"), c.String("state-dir"))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ws.Logout(); err != nil {
				return err
			}
			sess := &session{local: a.local}
			if err := sess.clear(); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func whoamiCmd() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			a, err := newApp(c.String("server"), c.String("state-dir"))
			if err != nil {
				return err
			}
			defer a.Close()

			sess := &session{local: a.local}
			if !sess.Authenticated() {
				fmt.Println("Not signed in (guest mode).")
				return nil
			}
			fmt.Printf("%s <%s>\n", sess.DisplayName(), sess.Email())
			return nil
		},
	}
}

func lsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "List workspaces and files",
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folders := a.ws.Folders()
				if len(folders) == 0 {
					fmt.Println("No workspaces yet. Create one with: buggfix new")
					return nil
				}
				for _, folder := range folders {
					fmt.Printf("%s  %s\n", folder.ID, folder.Title)
					for _, file := range folder.Files {
						fmt.Printf("  %s  %s (%s)\n", file.ID, file.Title, file.Language)
					}
				}
				if a.ws.SyncDegraded() {
					fmt.Println("\nNote: cloud sync is currently unavailable; showing local data.")
				}
				return nil
			})
		},
	}
}

func newCmd() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a workspace with a first file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Required: true, Usage: "Workspace title"},
			&cli.StringFlag{Name: "file", Required: true, Usage: "First file title"},
			&cli.StringFlag{Name: "lang", Value: "python", Usage: "cpp|javascript|python|java"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folder, err := a.ws.CreateWorkspace(c.Context,
					c.String("folder"), c.String("file"), domain.Language(c.String("lang")))
				if err != nil {
					return err
				}
				fmt.Printf("Created workspace %s (%s)\n", folder.Title, folder.ID)
				return nil
			})
		},
	}
}

func folderCmd() *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Manage workspaces",
		Subcommands: []*cli.Command{
			{
				Name:  "rename",
				Usage: "Rename a workspace",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, err := resolveFolder(a.ws, c.String("folder"))
						if err != nil {
							return err
						}
						return a.ws.RenameFolder(c.Context, folder.ID, c.String("title"))
					})
				},
			},
			{
				Name:  "rm",
				Usage: "Delete a workspace and its files",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, err := resolveFolder(a.ws, c.String("folder"))
						if err != nil {
							return err
						}
						return a.ws.DeleteFolder(c.Context, folder.ID)
					})
				},
			},
		},
	}
}

func fileCmd() *cli.Command {
	return &cli.Command{
		Name:  "file",
		Usage: "Manage files inside a workspace",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Add a file to a workspace",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "lang", Value: "python"},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, err := resolveFolder(a.ws, c.String("folder"))
						if err != nil {
							return err
						}
						file, err := a.ws.AddFile(c.Context, folder.ID,
							c.String("title"), domain.Language(c.String("lang")))
						if err != nil {
							return err
						}
						fmt.Printf("Created file %s (%s)\n", file.Title, file.ID)
						return nil
					})
				},
			},
			{
				Name:  "rename",
				Usage: "Rename a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
					&cli.StringFlag{Name: "file", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, file, err := resolveTarget(a.ws, c)
						if err != nil {
							return err
						}
						return a.ws.RenameFile(c.Context, folder.ID, file.ID, c.String("title"))
					})
				},
			},
			{
				Name:  "rm",
				Usage: "Delete a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
					&cli.StringFlag{Name: "file", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, file, err := resolveTarget(a.ws, c)
						if err != nil {
							return err
						}
						return a.ws.DeleteFile(c.Context, folder.ID, file.ID)
					})
				},
			},
			{
				Name:  "lang",
				Usage: "Switch a file's language (resets it to the starter template)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Required: true},
					&cli.StringFlag{Name: "file", Required: true},
					&cli.StringFlag{Name: "lang", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(a *app) error {
						folder, file, err := resolveTarget(a.ws, c)
						if err != nil {
							return err
						}
						return a.ws.SetLanguage(c.Context, folder.ID, file.ID,
							domain.Language(c.String("lang")))
					})
				},
			},
		},
	}
}

func resolveTarget(ws *workspace.Store, c *cli.Context) (domain.Folder, domain.File, error) {
	folder, err := resolveFolder(ws, c.String("folder"))
	if err != nil {
		return domain.Folder{}, domain.File{}, err
	}
	file, err := resolveFile(folder, c.String("file"))
	if err != nil {
		return domain.Folder{}, domain.File{}, err
	}
	return folder, file, nil
}

func saveCmd() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save code into a file (reads from stdin or --from)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Required: true},
			&cli.StringFlag{Name: "file", Required: true},
			&cli.StringFlag{Name: "from", Usage: "Read code from this path instead of stdin"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folder, file, err := resolveTarget(a.ws, c)
				if err != nil {
					return err
				}

				var code []byte
				if path := c.String("from"); path != "" {
					code, err = os.ReadFile(path)
				} else {
					code, err = io.ReadAll(os.Stdin)
				}
				if err != nil {
					return err
				}
				return a.ws.SaveCode(c.Context, folder.ID, file.ID, string(code))
			})
		},
	}
}

func catCmd() *cli.Command {
	return &cli.Command{
		Name:  "cat",
		Usage: "Print a file's code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Required: true},
			&cli.StringFlag{Name: "file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folder, file, err := resolveTarget(a.ws, c)
				if err != nil {
					return err
				}
				code, ok := a.ws.Code(folder.ID, file.ID)
				if !ok {
					return errors.New("file not found")
				}
				fmt.Print(code)
				if !strings.HasSuffix(code, "\n") {
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a file on the remote judge",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Required: true},
			&cli.StringFlag{Name: "file", Required: true},
			&cli.StringFlag{Name: "stdin", Usage: "Input to feed the program"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folder, file, err := resolveTarget(a.ws, c)
				if err != nil {
					return err
				}
				code, _ := a.ws.Code(folder.ID, file.ID)

				fmt.Println("Running...")
				result, err := a.judge.Run(c.Context, code, file.Language, c.String("stdin"))
				if err != nil {
					return err
				}

				if !result.OK {
					fmt.Printf("%s\n", result.Status)
				}
				fmt.Print(result.Output)
				if result.Output != "" && !strings.HasSuffix(result.Output, "\n") {
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func aifixCmd() *cli.Command {
	return &cli.Command{
		Name:  "aifix",
		Usage: "Ask the AI to fix a file and replay the suggestion",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Required: true},
			&cli.StringFlag{Name: "file", Required: true},
			&cli.BoolFlag{Name: "no-animate", Usage: "Apply the suggestion without the typing effect"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app) error {
				folder, file, err := resolveTarget(a.ws, c)
				if err != nil {
					return err
				}
				code, _ := a.ws.Code(folder.ID, file.ID)

				delay := ai.DefaultCharDelay
				if c.Bool("no-animate") {
					delay = 0
				}
				editor := &terminalEditor{value: code, out: os.Stdout}
				sess := ai.NewSession(editor, ai.NewAnimator(delay), a.client, file.Language)

				feedback, err := sess.RunAI(c.Context)
				if err != nil {
					return err
				}
				fmt.Println()

				if feedback != "" {
					fmt.Println(feedback)
				}
				if editor.Value() == code {
					return nil
				}
				return a.ws.SaveCode(c.Context, folder.ID, file.ID, editor.Value())
			})
		},
	}
}

// terminalEditor replays editor writes onto the terminal. Appends print
// the new suffix, mimicking the typing effect; any other change reprints
// the buffer.
type terminalEditor struct {
	value string
	out   io.Writer
}

func (e *terminalEditor) Value() string { return e.value }

func (e *terminalEditor) SetValue(value string) error {
	switch {
	case value == "":
		// Replay restarting; clear with a separator instead of escape codes.
		fmt.Fprintln(e.out, "--- applying suggestion ---")
	case strings.HasPrefix(value, e.value):
		fmt.Fprint(e.out, strings.TrimPrefix(value, e.value))
	default:
		fmt.Fprintln(e.out, value)
	}
	e.value = value
	return nil
}
