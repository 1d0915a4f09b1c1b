package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/logging"
)

// ListUsersCommand prints every account with its role.
type ListUsersCommand struct {
	DatabasePath string
}

func NewListUsersCommand() *ListUsersCommand {
	return &ListUsersCommand{}
}

func (cmd *ListUsersCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the catalog database")
	return fs.Parse(args)
}

func (cmd *ListUsersCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath, logging.New("warn", cfg.Log.Format))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	all, err := users.NewRepository(db.DB).ListUsers()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No users. Run create-user or visit /setup.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tTOKEN")
	for _, u := range all {
		token := "no"
		if u.TokenHash != "" {
			token = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, token)
	}
	return w.Flush()
}
