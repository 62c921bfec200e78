package domain

import "testing"

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid defaults role", User{Name: "Ana", Email: "ana@example.com"}, false},
		{"admin", User{Name: "Ben", Email: "ben@example.com", Role: RoleAdmin}, false},
		{"missing email", User{Name: "Cy"}, true},
		{"missing name", User{Email: "cy@example.com"}, true},
		{"bad role", User{Name: "Di", Email: "di@example.com", Role: "owner"}, true},
		{"push without token", User{Name: "Ed", Email: "ed@example.com", PushNotification: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := u.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && u.Role == "" {
				t.Error("Validate should default the role")
			}
		})
	}
}
