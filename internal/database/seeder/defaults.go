package seeder

// Defaults returns the seeders for a demo account owned by email.
func Defaults(email string) []Seeder {
	return []Seeder{
		DemoApplicationsSeeder{Email: email},
	}
}
