package library

// DefaultBooks is the starter catalog added when ISBN-001 is missing.
var DefaultBooks = []Book{
	{Title: "C++ Primer", Author: "Stanley Lippman", Publisher: "Addison-Wesley", Year: 2012, ISBN: "ISBN-001"},
	{Title: "Effective C++", Author: "Scott Meyers", Publisher: "O'Reilly", Year: 2005, ISBN: "ISBN-002"},
	{Title: "The C++ Programming Language", Author: "Bjarne Stroustrup", Publisher: "Addison-Wesley", Year: 2013, ISBN: "ISBN-003"},
	{Title: "Programming: Principles and Practice", Author: "Bjarne Stroustrup", Publisher: "Addison-Wesley", Year: 2014, ISBN: "ISBN-004"},
	{Title: "Modern C++ Design", Author: "Andrei Alexandrescu", Publisher: "Addison-Wesley", Year: 2001, ISBN: "ISBN-005"},
	{Title: "C++ Concurrency in Action", Author: "Anthony Williams", Publisher: "Manning", Year: 2019, ISBN: "ISBN-006"},
	{Title: "Clean Code", Author: "Robert C. Martin", Publisher: "Prentice Hall", Year: 2008, ISBN: "ISBN-007"},
	{Title: "Design Patterns", Author: "Erich Gamma", Publisher: "Addison-Wesley", Year: 1994, ISBN: "ISBN-008"},
	{Title: "Effective STL", Author: "Scott Meyers", Publisher: "O'Reilly", Year: 2001, ISBN: "ISBN-009"},
	{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Publisher: "Addison-Wesley", Year: 1999, ISBN: "ISBN-010"},
}

// SeedUser is a starter account; Password is plaintext and hashed on insert.
type SeedUser struct {
	ID       string
	Name     string
	Password string
	Role     Role
}

// DefaultUsers are added when user "1" is missing.
var DefaultUsers = []SeedUser{
	{"1", "Alice", "alicepwd", RoleStudent},
	{"2", "Bob", "bobpwd", RoleStudent},
	{"3", "Charlie", "charliepwd", RoleStudent},
	{"4", "David", "davidpwd", RoleStudent},
	{"5", "Eva", "evapwd", RoleStudent},
	{"6", "Prof. Smith", "smithpwd", RoleFaculty},
	{"7", "Prof. Johnson", "johnsonpwd", RoleFaculty},
	{"8", "Prof. Williams", "williampwd", RoleFaculty},
	{"9", "Librarian Karen", "karenpwd", RoleLibrarian},
}

// Seed adds the default books and users that are not already present and
// returns how many of each were added.
func (c *Catalog) Seed() (books, users int, err error) {
	if _, ok := c.books[DefaultBooks[0].ISBN]; !ok {
		for _, b := range DefaultBooks {
			if _, exists := c.books[b.ISBN]; exists {
				continue
			}
			if err := c.AddBook(NewBook(b.Title, b.Author, b.Publisher, b.Year, b.ISBN)); err != nil {
				return books, users, err
			}
			books++
		}
	}
	if _, ok := c.users[DefaultUsers[0].ID]; !ok {
		for _, su := range DefaultUsers {
			if _, exists := c.users[su.ID]; exists {
				continue
			}
			u, err := NewUser(su.ID, su.Name, su.Password, su.Role)
			if err != nil {
				return books, users, err
			}
			if err := c.AddUser(u); err != nil {
				return books, users, err
			}
			users++
		}
	}
	return books, users, nil
}
