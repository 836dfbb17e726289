package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/aarchit22/Library-Management-System-CS253/library"
)

func runInteractive(ctx context.Context) error {
	mgr, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\n--- Library Management System ---")
		fmt.Println("1. Login")
		fmt.Println("2. Exit")
		choice, ok := promptChoice(scanner)
		if !ok || choice == 2 {
			break
		}
		if choice != 1 {
			fmt.Println("Invalid choice.")
			continue
		}

		user, err := login(ctx, scanner, mgr)
		if err != nil {
			fmt.Println(err)
			continue
		}
		switch user.Role {
		case library.RoleStudent:
			studentMenu(ctx, scanner, mgr, user)
		case library.RoleFaculty:
			facultyMenu(ctx, scanner, mgr, user)
		case library.RoleLibrarian:
			librarianMenu(ctx, scanner, mgr, user)
		}
	}

	if err := mgr.Save(ctx); err != nil {
		return err
	}
	fmt.Println("Goodbye!")
	return nil
}

// readPassword reads a password with masking when stdin is a terminal, and
// as a plain line otherwise so input can be piped.
func readPassword(sc *bufio.Scanner, prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if !sc.Scan() {
			return "", fmt.Errorf("no input")
		}
		return strings.TrimSpace(sc.Text()), nil
	}
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func login(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) (library.UserSummary, error) {
	uid, ok := prompt(sc, "Enter User ID: ")
	if !ok {
		return library.UserSummary{}, fmt.Errorf("no input")
	}
	password, err := readPassword(sc, "Enter Password: ")
	if err != nil {
		return library.UserSummary{}, fmt.Errorf("failed to read password: %w", err)
	}
	return mgr.Authenticate(ctx, uid, password)
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt(sc *bufio.Scanner, label string) (int, bool) {
	raw, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", raw)
		return 0, false
	}
	return n, true
}

// promptChoice returns ok=false only when input is exhausted; an unparseable
// choice comes back as -1.
func promptChoice(sc *bufio.Scanner) (int, bool) {
	raw, ok := prompt(sc, "Enter your choice: ")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Println("Invalid input. Try again.")
		return -1, true
	}
	return n, true
}

func studentMenu(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, user library.UserSummary) {
	for {
		fmt.Printf("\n--- Student Menu (%s) ---\n", user.Name)
		fmt.Println("1. View All Books")
		fmt.Println("2. Borrow Book")
		fmt.Println("3. Reserve Book")
		fmt.Println("4. Return Book")
		fmt.Println("5. View Outstanding Fine")
		fmt.Println("6. Request Fine Clearance")
		fmt.Println("7. View Currently Borrowed Books")
		fmt.Println("8. Logout")
		choice, ok := promptChoice(sc)
		if !ok || choice == 8 {
			return
		}
		switch choice {
		case -1:
		case 1:
			handleListBooks(mgr, user.ID)
		case 2:
			handleBorrow(ctx, sc, mgr, user.ID)
		case 3:
			handleReserve(ctx, sc, mgr, user.ID)
		case 4:
			handleReturn(ctx, sc, mgr, user.ID)
		case 5:
			handleViewFine(mgr, user.ID)
		case 6:
			handleRequestSettlement(ctx, mgr, user.ID)
		case 7:
			handleListBorrowed(mgr, user.ID)
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

func facultyMenu(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, user library.UserSummary) {
	for {
		fmt.Printf("\n--- Faculty Menu (%s) ---\n", user.Name)
		fmt.Println("1. View All Books")
		fmt.Println("2. Borrow Book")
		fmt.Println("3. Reserve Book")
		fmt.Println("4. Return Book")
		fmt.Println("5. View Currently Borrowed Books")
		fmt.Println("6. Logout")
		choice, ok := promptChoice(sc)
		if !ok || choice == 6 {
			return
		}
		switch choice {
		case -1:
		case 1:
			handleListBooks(mgr, user.ID)
		case 2:
			handleBorrow(ctx, sc, mgr, user.ID)
		case 3:
			handleReserve(ctx, sc, mgr, user.ID)
		case 4:
			handleReturn(ctx, sc, mgr, user.ID)
		case 5:
			handleListBorrowed(mgr, user.ID)
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

func librarianMenu(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, user library.UserSummary) {
	for {
		fmt.Printf("\n--- Librarian Menu (%s) ---\n", user.Name)
		fmt.Println("1. Add Book")
		fmt.Println("2. Add User")
		fmt.Println("3. Remove User")
		fmt.Println("4. Search Book by ISBN")
		fmt.Println("5. List All Books")
		fmt.Println("6. View Borrowing Details")
		fmt.Println("7. List All Users")
		fmt.Println("8. Approve Fine Clearance for a User")
		fmt.Println("9. Logout")
		choice, ok := promptChoice(sc)
		if !ok || choice == 9 {
			return
		}
		switch choice {
		case -1:
		case 1:
			handleAddBook(ctx, sc, mgr)
		case 2:
			handleAddUser(ctx, sc, mgr)
		case 3:
			handleRemoveUser(ctx, sc, mgr)
		case 4:
			handleSearchBook(sc, mgr)
		case 5:
			handleListBooks(mgr, "")
		case 6:
			printIssuedRecords(mgr.IssuedRecords())
		case 7:
			handleListUsers(mgr)
		case 8:
			handleApproveSettlement(ctx, sc, mgr)
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

// ------------------ Borrower handlers ------------------

func handleListBooks(mgr *library.LibraryManager, viewerID string) {
	books := mgr.GetAllBooks()
	fmt.Println("\n--- All Books ---")
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	now := mgr.Now()
	for _, b := range books {
		fmt.Println(library.PrettyBook(b, viewerID, now))
	}
}

func handleBorrow(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, userID string) {
	isbn, ok := prompt(sc, "Enter ISBN to borrow: ")
	if !ok {
		return
	}
	book, err := mgr.IssueBook(ctx, userID, isbn)
	if rejected(err) {
		return
	}
	fmt.Printf("Book '%s' (ISBN %s) issued to user %s.\n", book.Title, book.ISBN, userID)
}

func handleReserve(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, userID string) {
	isbn, ok := prompt(sc, "Enter ISBN to reserve: ")
	if !ok {
		return
	}
	if _, err := mgr.ReserveBook(ctx, userID, isbn); rejected(err) {
		return
	}
	fmt.Println("Book reserved successfully. Once returned, it will be available exclusively for you for 5 days.")
}

func handleReturn(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, userID string) {
	isbn, ok := prompt(sc, "Enter ISBN to return: ")
	if !ok {
		return
	}
	days, ok := promptInt(sc, "Enter number of days since issue: ")
	if !ok {
		return
	}
	receipt, err := mgr.ReturnBook(ctx, userID, isbn, days)
	if rejected(err) {
		return
	}
	if receipt.Fine.IsPositive() {
		fmt.Printf("Book returned after %d days. Fine of %s rupees applied.\n", days, receipt.Fine)
	} else {
		fmt.Println("Book returned on time.")
	}
	if receipt.ReservedFor != "" {
		fmt.Printf("Book is now reserved exclusively for user %s for 5 days.\n", receipt.ReservedFor)
	}
}

func handleViewFine(mgr *library.LibraryManager, userID string) {
	u, err := mgr.GetUser(userID)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Outstanding fine: %s rupees\n", u.Fine)
}

func handleRequestSettlement(ctx context.Context, mgr *library.LibraryManager, userID string) {
	outcome, err := mgr.RequestFineSettlement(ctx, userID)
	if rejected(err) {
		return
	}
	switch outcome {
	case library.SettlementRequested:
		fmt.Println("Your fine clearance request has been sent for librarian approval.")
	case library.SettlementAlreadyPending:
		fmt.Println("Your fine clearance request is pending approval.")
	default:
		fmt.Println("No fine to clear.")
	}
}

func handleListBorrowed(mgr *library.LibraryManager, userID string) {
	u, err := mgr.GetUser(userID)
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(u.Borrowed) == 0 {
		fmt.Println("You have not borrowed any books.")
		return
	}
	now := mgr.Now()
	for _, isbn := range u.Borrowed {
		if b, err := mgr.GetBook(isbn); err == nil {
			fmt.Println(library.PrettyBook(b, userID, now))
		}
	}
}

// ------------------ Librarian handlers ------------------

func handleAddBook(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	title, ok := prompt(sc, "Enter title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Enter author: ")
	if !ok {
		return
	}
	publisher, ok := prompt(sc, "Enter publisher: ")
	if !ok {
		return
	}
	year, ok := promptInt(sc, "Enter year: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "Enter ISBN: ")
	if !ok {
		return
	}
	book, err := mgr.AddBook(ctx, title, author, publisher, year, isbn)
	if rejected(err) {
		return
	}
	fmt.Printf("Added book '%s' with ISBN %s.\n", book.Title, book.ISBN)
}

func handleAddUser(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	uid, ok := prompt(sc, "Enter new User ID: ")
	if !ok {
		return
	}
	if _, err := mgr.GetUser(uid); err == nil {
		fmt.Printf("User with ID %s already exists. Cannot add duplicate.\n", uid)
		return
	}
	name, ok := prompt(sc, "Enter name: ")
	if !ok {
		return
	}
	password, err := readPassword(sc, fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	rawRole, ok := prompt(sc, "Enter role (Student/Faculty): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(rawRole)
	if err != nil || role == library.RoleLibrarian {
		fmt.Println("Invalid role. Only Student or Faculty allowed.")
		return
	}
	if _, err := mgr.AddUser(ctx, uid, name, password, role); rejected(err) {
		return
	}
	fmt.Println("User added successfully.")
}

func handleRemoveUser(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	uid, ok := prompt(sc, "Enter User ID to remove: ")
	if !ok {
		return
	}
	if err := mgr.RemoveUser(ctx, uid); rejected(err) {
		return
	}
	fmt.Printf("User %s removed successfully.\n", uid)
}

func handleSearchBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	isbn, ok := prompt(sc, "Enter ISBN to search: ")
	if !ok {
		return
	}
	if b, err := mgr.GetBook(isbn); err == nil {
		fmt.Println(library.PrettyBook(b, "", mgr.Now()))
		return
	}
	matches := mgr.SearchBooks(isbn)
	if len(matches) == 0 {
		fmt.Println("Book not found.")
		return
	}
	fmt.Printf("No exact ISBN match; %d book(s) matching '%s':\n", len(matches), isbn)
	for _, b := range matches {
		fmt.Println(library.PrettyBook(b, "", mgr.Now()))
	}
}

func handleListUsers(mgr *library.LibraryManager) {
	users := mgr.GetAllUsers()
	fmt.Println("\n--- All Users ---")
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	fmt.Printf("%-8s %-25s %-10s %-10s %-8s %s\n", "ID", "Name", "Role", "Fine", "Pending", "Borrowed")
	fmt.Println(strings.Repeat("-", 80))
	for _, u := range users {
		pending := "No"
		if u.SettlementPending {
			pending = "Yes"
		}
		fmt.Printf("%-8s %-25s %-10s %-10s %-8s %d\n",
			truncateString(u.ID, 8), truncateString(u.Name, 25), u.Role, u.Fine, pending, len(u.Borrowed))
	}
}

func handleApproveSettlement(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	uid, ok := prompt(sc, "Enter User ID to approve fine clearance: ")
	if !ok {
		return
	}
	if _, err := mgr.ApproveFineSettlement(ctx, uid); rejected(err) {
		return
	}
	fmt.Printf("Fine for user %s has been approved and cleared.\n", uid)
}

// rejected prints err and reports whether the operation was refused. A change
// that was applied but not saved is reported and then treated as done.
func rejected(err error) bool {
	if err == nil {
		return false
	}
	fmt.Println(err)
	var unsaved *library.UnsavedError
	return !errors.As(err, &unsaved)
}

func printIssuedRecords(records []library.LedgerEntry) {
	fmt.Println("\n--- Borrowing Details ---")
	if len(records) == 0 {
		fmt.Println("No books are currently issued.")
		return
	}
	for _, r := range records {
		fmt.Printf("User ID: %s, ISBN: %s, Issue Date: %s\n", r.UserID, r.ISBN, r.IssuedAt.Format("Mon Jan 2 15:04:05 2006"))
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
