package models

type User struct {
	BaseModel
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"type:text;not null"`
	FirstName    string  `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string  `json:"lastName" gorm:"type:varchar(100)"`
	AvatarURL    *string `json:"avatarURL,omitempty" gorm:"type:text"`
	// Provider is the identity provider the account came from ("google",
	// "github"), empty for local password accounts.
	Provider string `json:"provider,omitempty" gorm:"type:varchar(20);index"`
}
