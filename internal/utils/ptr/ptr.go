package ptr

func ToBool(v bool) *bool { return &v }

func ToInt(v int) *int { return &v }

func ToUint(v uint) *uint { return &v }

func ToString(v string) *string { return &v }
