package model

type Customer struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	// 平文 or bcryptハッシュ（CREDENTIAL_MODEによる）
	Credential string `gorm:"column:credential;not null" json:"-"`
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Address    string `gorm:"type:text" json:"address"`
}
