package model

import (
	"os"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[uint]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestInitIDGeneratorRejectsInvalidNode(t *testing.T) {
	if err := InitIDGenerator(4096); err == nil {
		t.Fatal("expected node id 4096 to be rejected")
	}
	if err := InitIDGenerator(3); err != nil {
		t.Fatal(err)
	}
	if GenerateID() == 0 {
		t.Fatal("generated zero id")
	}
}

func TestBeforeCreateKeepsExplicitID(t *testing.T) {
	user := &User{ID: 42}
	if err := user.BeforeCreate(nil); err != nil {
		t.Fatal(err)
	}
	if user.ID != 42 {
		t.Errorf("id = %d, want 42", user.ID)
	}
	blog := &Blog{}
	if err := blog.BeforeCreate(nil); err != nil {
		t.Fatal(err)
	}
	if blog.ID == 0 {
		t.Error("blog id was not generated")
	}
}

func TestAutoMigrate(t *testing.T) {
	dsn := os.Getenv("QUILL_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("QUILL_TEST_MYSQL_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"user", "blog", "blog_like", "audit", "request_log"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}
