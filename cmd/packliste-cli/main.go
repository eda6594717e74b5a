// Command packliste-cli is an interactive client for a packliste server.
// It keeps the full account state in a local packing store and mutates it
// optimistically; failed writes roll back and print a toast line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"packliste/internal/api"
	"packliste/internal/logging"
	"packliste/internal/packing"
)

// printNotifier writes toasts to stdout the way the app shows them.
type printNotifier struct{}

func (printNotifier) Notify(level packing.Level, message string) {
	prefix := "i"
	if level == packing.LevelError {
		prefix = "!"
	}
	fmt.Printf("[%s] %s\n", prefix, message)
}

type cli struct {
	client *api.HTTPClient
	store  *packing.Store
	listID string
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "packliste server URL")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.Setup(*logLevel)
	client := api.NewHTTPClient(*serverURL)
	c := &cli{
		client: client,
		store:  packing.New(client, printNotifier{}, logger),
	}

	fmt.Println("packliste-cli. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		if err := c.run(ctx, args); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "register", "login":
		if len(rest) != 2 {
			return fmt.Errorf("usage: %s <email> <password>", cmd)
		}
		var (
			auth *api.AuthResponse
			err  error
		)
		if cmd == "register" {
			auth, err = c.client.SignUp(ctx, rest[0], rest[1])
		} else {
			auth, err = c.client.SignIn(ctx, rest[0], rest[1])
		}
		if err != nil {
			return err
		}
		if err := c.store.Load(ctx, auth.UserID); err != nil {
			return err
		}
		fmt.Println("signed in as", auth.Email)
		return nil
	case "logout":
		c.store.Clear()
		c.client.SetAuthToken("")
		c.listID = ""
		return nil
	}

	if !c.store.Loaded() {
		return fmt.Errorf("not signed in")
	}

	switch cmd {
	case "lists":
		for _, l := range c.store.Lists() {
			st := c.store.Stats(l.ID)
			marker := " "
			if l.ID == c.listID {
				marker = "*"
			}
			fmt.Printf("%s %s  %s %s  (%d/%d)\n", marker, l.ID, l.Emoji, l.Name, st.Packed, st.Total)
		}
	case "newlist":
		if len(rest) == 0 {
			return fmt.Errorf("usage: newlist <name> [emoji]")
		}
		emoji := ""
		if len(rest) > 1 {
			emoji = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
		list, err := c.store.AddList(ctx, strings.Join(rest, " "), emoji)
		if err != nil {
			return err
		}
		c.listID = list.ID
	case "rmlist":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rmlist <id>")
		}
		if err := c.store.DeleteList(ctx, rest[0]); err != nil {
			return err
		}
		if c.listID == rest[0] {
			c.listID = ""
		}
	case "use":
		if len(rest) != 1 {
			return fmt.Errorf("usage: use <list-id>")
		}
		if c.store.ListByID(rest[0]) == nil {
			return fmt.Errorf("no such list")
		}
		c.listID = rest[0]
	case "show":
		return c.show()
	case "add":
		if len(rest) == 0 {
			return fmt.Errorf("usage: add <text>")
		}
		if err := c.needList(); err != nil {
			return err
		}
		_, err := c.store.AddItem(ctx, c.listID, nil, strings.Join(rest, " "))
		return err
	case "addto":
		if len(rest) < 2 {
			return fmt.Errorf("usage: addto <section-id> <text>")
		}
		if err := c.needList(); err != nil {
			return err
		}
		_, err := c.store.AddItem(ctx, c.listID, &rest[0], strings.Join(rest[1:], " "))
		return err
	case "check":
		if len(rest) != 1 {
			return fmt.Errorf("usage: check <item-id>")
		}
		return c.store.ToggleItem(ctx, rest[0])
	case "edit":
		if len(rest) < 2 {
			return fmt.Errorf("usage: edit <item-id> <text>")
		}
		return c.store.UpdateItemText(ctx, rest[0], strings.Join(rest[1:], " "))
	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rm <item-id>")
		}
		return c.store.DeleteItem(ctx, rest[0])
	case "move":
		if len(rest) != 2 {
			return fmt.Errorf("usage: move <item-id> <section-id|loose>")
		}
		var sectionID *string
		if rest[1] != "loose" {
			sectionID = &rest[1]
		}
		return c.store.MoveItemToSection(ctx, rest[0], sectionID, nil)
	case "addsec":
		if len(rest) == 0 {
			return fmt.Errorf("usage: addsec <name>")
		}
		if err := c.needList(); err != nil {
			return err
		}
		_, err := c.store.AddSection(ctx, c.listID, strings.Join(rest, " "))
		return err
	case "rmsec":
		if len(rest) != 2 {
			return fmt.Errorf("usage: rmsec <section-id> <all|move|loose>")
		}
		var d packing.Disposition
		switch rest[1] {
		case "all":
			d = packing.DeleteAll
		case "move":
			d = packing.MoveToCatchAll
		case "loose":
			d = packing.KeepAsLoose
		default:
			return fmt.Errorf("unknown disposition %q", rest[1])
		}
		return c.store.DeleteSection(ctx, rest[0], d)
	case "reset":
		if err := c.needList(); err != nil {
			return err
		}
		return c.store.ResetListItems(ctx, c.listID)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}

func (c *cli) needList() error {
	if c.listID == "" {
		return fmt.Errorf("no list selected, use 'use <list-id>'")
	}
	return nil
}

func (c *cli) show() error {
	if err := c.needList(); err != nil {
		return err
	}
	list := c.store.ListByID(c.listID)
	if list == nil {
		return fmt.Errorf("list is gone")
	}
	st := c.store.Stats(c.listID)
	fmt.Printf("%s %s  (%d/%d gepackt)\n", list.Emoji, list.Name, st.Packed, st.Total)

	printItem := func(indent string, checked bool, id, text string) {
		box := "[ ]"
		if checked {
			box = "[x]"
		}
		fmt.Printf("%s%s %s  %s\n", indent, box, id, text)
	}

	for _, it := range c.store.LooseItems(c.listID) {
		printItem("  ", it.Checked, it.ID, it.Text)
	}
	for _, sec := range c.store.SectionsOf(c.listID) {
		fmt.Printf("  %s (%s)\n", sec.Name, sec.ID)
		for _, it := range c.store.ItemsOfSection(sec.ID) {
			printItem("    ", it.Checked, it.ID, it.Text)
		}
	}
	return nil
}

func printHelp() {
	fmt.Print(`commands:
  register <email> <password>   create an account and sign in
  login <email> <password>      sign in and load all lists
  logout                        clear the local store
  lists                         show lists, most recently active first
  newlist <name> [emoji]        create a list and select it
  rmlist <id>                   delete a list with everything in it
  use <list-id>                 select a list
  show                          print the selected list
  add <text>                    add a loose item
  addto <section-id> <text>     add an item to a section
  check <item-id>               toggle an item
  edit <item-id> <text>         change an item's text
  rm <item-id>                  delete an item
  move <item-id> <section|loose> move an item between sections
  addsec <name>                 add a section (first one groups the list)
  rmsec <id> <all|move|loose>   delete a section, choosing item disposition
  reset                         uncheck every item of the selected list
  quit
`)
}
