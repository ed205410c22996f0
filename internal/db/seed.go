package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/preference"
)

var seedNames = []string{
	"Artem", "Maksim", "Ivan", "Danil", "Egor", "Kirill", "Nikita", "Lev", "Timur", "Roman",
	"Alisa", "Sofia", "Polina", "Varvara", "Eva", "Vera", "Daria", "Milana", "Kira", "Arina",
}

// seedCities are codes present in the embedded geo directory.
var seedCities = []preference.LocationCode{
	preference.NewLocationCode(1, 1, 1),   // Moscow
	preference.NewLocationCode(1, 2, 3),   // Khimki
	preference.NewLocationCode(2, 3, 6),   // Saint Petersburg
	preference.NewLocationCode(5, 8, 13),  // Kazan
	preference.NewLocationCode(7, 13, 20), // Novosibirsk
}

var seedFilters = []preference.LocationFilter{
	preference.SameCountry, preference.SameCountry, preference.SameCounty,
	preference.SameSubjectRegion, preference.SameCity,
}

// SeedTestData resets the database and populates it with demo students.
//
// Behavior:
//  1. Clears existing data in `images`, `datings` and `users` tables.
//  2. Creates 20 students (10 male, 10 female) in grades 8..11 spread over
//     five cities, with random subjects, purposes and filters.
//  3. Generates a handful of historical datings with mixed reactions.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	// --- Fresh start ---
	for _, table := range []string{"images", "datings", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE datings AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE images AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('datings', 'images')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	for i, name := range seedNames {
		gender := preference.Male
		if i >= 10 {
			gender = preference.Female
		}

		year, err := preference.GradeToGraduationYear(8+r.Intn(4), now)
		if err != nil {
			return err
		}

		city := seedCities[r.Intn(len(seedCities))]
		purpose := preference.DatingPurpose(1 + r.Intn(int(preference.AllPurposes)))

		user := User{
			ID:              int64(100000 + i),
			Name:            name,
			Gender:          gender,
			About:           fmt.Sprintf("Hi, I'm %s and I like %s.", name, randomSubjects(r, 1)),
			Active:          true,
			LastActivity:    now.Add(-time.Duration(r.Intn(500)) * time.Hour),
			GraduationYear:  year,
			GradeUpFilter:   1,
			GradeDownFilter: 1,
			Subjects:        preference.EncodeSubjects(randomSubjects(r, 3)),
			DatingPurpose:   preference.EncodePurpose(purpose),
			City:            &city,
			LocationFilter:  seedFilters[r.Intn(len(seedFilters))],
		}
		if r.Intn(3) == 0 {
			user.SubjectsFilter = preference.EncodeSubjects(randomSubjects(r, 4))
		}
		if r.Intn(2) == 0 {
			other := preference.Female
			if gender == preference.Female {
				other = preference.Male
			}
			user.GenderFilter = &other
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Printf("Seeded %d users.", len(seedNames))

	// --- Seed Datings ---
	counter := 0
	for i := 0; i < 30; i++ {
		initiator := int64(100000 + r.Intn(len(seedNames)))
		partner := int64(100000 + r.Intn(len(seedNames)))
		if initiator == partner {
			continue
		}

		d := Dating{
			InitiatorID: initiator,
			PartnerID:   partner,
			Time:        now.Add(-time.Duration(24+r.Intn(24*30)) * time.Hour),
		}
		liked := r.Intn(100) < 60
		d.InitiatorReaction = &liked
		// every 3rd liked dating becomes mutual
		if liked && counter%3 == 0 {
			mutual := true
			d.PartnerReaction = &mutual
		}
		if err := db.Create(&d).Error; err != nil {
			return fmt.Errorf("failed to seed dating: %w", err)
		}
		counter++
	}
	log.Printf("Seeded %d datings.", counter)

	return nil
}

func randomSubjects(r *rand.Rand, n int) preference.Subjects {
	var s preference.Subjects
	for i := 0; i < n; i++ {
		s |= preference.Subjects(1) << r.Intn(24)
	}
	return s
}
