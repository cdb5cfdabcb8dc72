package user

// States はユーザーが選択できる州・連邦直轄領の一覧。
// フロントエンドのドロップダウンと同じ表記を使う。
var States = []string{
	"Andhra Pradesh",
	"Arunachal Pradesh",
	"Assam",
	"Bihar",
	"Chhattisgarh",
	"Goa",
	"Gujarat",
	"Haryana",
	"Himachal Pradesh",
	"Jharkhand",
	"Karnataka",
	"Kerala",
	"Madhya Pradesh",
	"Maharashtra",
	"Manipur",
	"Meghalaya",
	"Mizoram",
	"Nagaland",
	"Odisha",
	"Punjab",
	"Rajasthan",
	"Sikkim",
	"Tamil Nadu",
	"Telangana",
	"Tripura",
	"Uttar Pradesh",
	"Uttarakhand",
	"West Bengal",
	"Andaman and Nicobar Islands",
	"Chandigarh",
	"Dadra and Nagar Haveli and Daman and Diu",
	"Delhi",
	"Jammu and Kashmir",
	"Ladakh",
	"Lakshadweep",
	"Puducherry",
}

var stateSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(States))
	for _, s := range States {
		m[s] = struct{}{}
	}
	return m
}()

// IsValidState はsが選択可能な州かどうかを返す。
func IsValidState(s string) bool {
	_, ok := stateSet[s]
	return ok
}
